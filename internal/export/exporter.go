package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"report-service/internal/metrics"
	"report-service/internal/models"

	"golang.org/x/sync/errgroup"
)

// PDFRenderer is satisfied by pdf.Renderer.
type PDFRenderer interface {
	Render(ctx context.Context, rec *models.AnalysisRecord) ([]byte, error)
}

// Artifact is one serialized export ready to be downloaded.
type Artifact struct {
	Format      Format `json:"format"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

type Exporter struct {
	product string
	pdf     PDFRenderer
}

func NewExporter(product string, pdf PDFRenderer) *Exporter {
	return &Exporter{product: product, pdf: pdf}
}

// Export serializes rec into one format. The record is only read.
func (e *Exporter) Export(ctx context.Context, rec *models.AnalysisRecord, format Format) (artifact Artifact, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic during export",
				"report_id", rec.ReportID,
				"format", format,
				"panic", r)
			err = fmt.Errorf("export %s panicked: %v", format, r)
		}
		result := "success"
		if err != nil {
			result = "error"
		}
		metrics.ExportsTotal.WithLabelValues(string(format), result).Inc()
		metrics.ExportDurationSeconds.WithLabelValues(string(format)).Observe(time.Since(start).Seconds())
	}()

	var data []byte
	switch format {
	case FormatPDF:
		data, err = e.ExportPDF(ctx, rec)
	case FormatCSV:
		data = []byte(ExportCSV(rec))
	case FormatXLSX:
		data, err = ExportExcel(rec)
	case FormatJSON:
		var s string
		s, err = ExportJSON(rec)
		data = []byte(s)
	default:
		return Artifact{}, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to export %s: %w", format, err)
	}

	slog.Info("Report exported",
		"report_id", rec.ReportID,
		"format", format,
		"size", len(data),
		"duration_ms", time.Since(start).Milliseconds())

	return Artifact{
		Format:      format,
		Filename:    Filename(e.product, rec, format),
		ContentType: format.ContentType(),
		Data:        data,
	}, nil
}

func (e *Exporter) ExportPDF(ctx context.Context, rec *models.AnalysisRecord) ([]byte, error) {
	if e.pdf == nil {
		return nil, fmt.Errorf("no PDF renderer configured")
	}
	return e.pdf.Render(ctx, rec)
}

// ExportAll renders every format concurrently and returns artifacts in Formats order.
func (e *Exporter) ExportAll(ctx context.Context, rec *models.AnalysisRecord) ([]Artifact, error) {
	artifacts := make([]Artifact, len(Formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, format := range Formats {
		g.Go(func() error {
			a, err := e.Export(ctx, rec, format)
			if err != nil {
				return err
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}
