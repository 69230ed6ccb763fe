package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"report-service/internal/event"
	"report-service/internal/export"
	"report-service/internal/models"
	"report-service/internal/normalizer"
	"report-service/internal/worker"
)

const publishTimeout = 5 * time.Second

// JobSubmitter is satisfied by *worker.WorkingPool.
type JobSubmitter interface {
	SubmitJob(job worker.Job) error
}

type ReportService struct {
	normalizer *normalizer.Normalizer
	exporter   *export.Exporter
	publisher  event.Publisher
	jobs       JobSubmitter
	now        func() time.Time
}

func NewReportService(n *normalizer.Normalizer, e *export.Exporter, publisher event.Publisher, jobs JobSubmitter) *ReportService {
	if publisher == nil {
		publisher = event.NoopPublisher{}
	}
	return &ReportService{
		normalizer: n,
		exporter:   e,
		publisher:  publisher,
		jobs:       jobs,
		now:        time.Now,
	}
}

func (s *ReportService) Normalize(payload []byte) (*models.AnalysisRecord, error) {
	rec, err := s.normalizer.NormalizeJSON(payload)
	if err != nil {
		return nil, err
	}
	slog.Info("Analysis normalized",
		"report_id", rec.ReportID,
		"farm_name", rec.Farm.Name,
		"health_score", rec.Health.Score)
	return rec, nil
}

// Export normalizes the payload and serializes it into one format.
func (s *ReportService) Export(ctx context.Context, payload []byte, format export.Format) (export.Artifact, error) {
	rec, err := s.Normalize(payload)
	if err != nil {
		return export.Artifact{}, err
	}
	return s.ExportRecord(ctx, rec, format)
}

func (s *ReportService) ExportRecord(ctx context.Context, rec *models.AnalysisRecord, format export.Format) (export.Artifact, error) {
	artifact, err := s.exporter.Export(ctx, rec, format)
	if err != nil {
		return export.Artifact{}, err
	}
	s.announce(rec, []export.Artifact{artifact})
	return artifact, nil
}

// ExportAll produces every format for one record and announces them together.
func (s *ReportService) ExportAll(ctx context.Context, rec *models.AnalysisRecord) ([]export.Artifact, error) {
	artifacts, err := s.exporter.ExportAll(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.announce(rec, artifacts)
	return artifacts, nil
}

// announce publishes the export event in the background. A full queue drops the
// event; the export itself has already succeeded.
func (s *ReportService) announce(rec *models.AnalysisRecord, artifacts []export.Artifact) {
	evt := exportedEvent(rec, artifacts, s.now())

	publish := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		if err := s.publisher.PublishReportExported(ctx, evt); err != nil {
			return fmt.Errorf("failed to publish export event for %s: %w", evt.ReportID, err)
		}
		return nil
	}

	if s.jobs == nil {
		if err := publish(context.Background()); err != nil {
			slog.Error("Export event not published", "report_id", evt.ReportID, "error", err)
		}
		return
	}
	if err := s.jobs.SubmitJob(publish); err != nil {
		slog.Warn("Export event dropped", "report_id", evt.ReportID, "error", err)
	}
}

func exportedEvent(rec *models.AnalysisRecord, artifacts []export.Artifact, at time.Time) event.ReportExportedEvent {
	evt := event.ReportExportedEvent{
		ReportID:    rec.ReportID,
		FarmID:      rec.Farm.FarmID,
		FarmName:    rec.Farm.Name,
		HealthScore: rec.Health.Score,
		HealthLabel: string(rec.Health.Label),
		ReportURL:   rec.Provenance.ReportURL,
		ExportedAt:  at.UTC().Format(time.RFC3339),
	}
	for _, a := range artifacts {
		evt.Formats = append(evt.Formats, string(a.Format))
		evt.Filenames = append(evt.Filenames, a.Filename)
	}
	return evt
}
