package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"report-service/internal/config"
	"report-service/internal/export"
	"report-service/internal/export/pdf"
	"report-service/internal/imagery"
	"report-service/internal/models"
	"report-service/internal/normalizer"

	"github.com/spf13/cobra"
)

// =============================================================================
// EXPORT COMMAND - raw analysis JSON to report files
// =============================================================================

type exportOptions struct {
	input  string
	format string
	outDir string
	sample bool
}

func newExportCmd() *cobra.Command {
	opts := exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an analysis payload as pdf, csv, xlsx, json or all",
		Example: `  reportctl export --input analysis.json --format pdf --out ./reports
  reportctl export --sample --format all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "analysis JSON file, or - for stdin")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "pdf", "pdf, csv, xlsx, json or all")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", ".", "output directory")
	cmd.Flags().BoolVar(&opts.sample, "sample", false, "export the built-in sample record instead of --input")
	cmd.MarkFlagsMutuallyExclusive("input", "sample")

	return cmd
}

func runExport(cmd *cobra.Command, opts exportOptions) error {
	cfg := config.New()

	rec, err := loadRecord(cmd, opts, cfg.ReportCfg.ReportBaseURL)
	if err != nil {
		return err
	}

	renderer := pdf.NewRenderer(
		pdf.Branding{Title: cfg.ReportCfg.Title, Subtitle: cfg.ReportCfg.Subtitle, Author: "Agrisa"},
		pdf.WithImageLoader(imagery.NewLoader(cfg.ImageryCfg.FetchTimeout, cfg.ImageryCfg.MaxBytes,
			imagery.WithAllowedHosts(cfg.ImageryCfg.AllowedHosts...),
			imagery.WithPrivateNetworks(cfg.ImageryCfg.AllowPrivateNetworks),
		)),
	)
	exporter := export.NewExporter(cfg.ReportCfg.ProductName, renderer)

	var artifacts []export.Artifact
	if opts.format == "all" {
		artifacts, err = exporter.ExportAll(cmd.Context(), rec)
	} else {
		format, perr := export.ParseFormat(opts.format)
		if perr != nil {
			return perr
		}
		var a export.Artifact
		a, err = exporter.Export(cmd.Context(), rec, format)
		artifacts = []export.Artifact{a}
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, a := range artifacts {
		path := filepath.Join(opts.outDir, a.Filename)
		if err := os.WriteFile(path, a.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-5s %8d bytes  %s\n", a.Format, len(a.Data), path)
	}
	return nil
}

func loadRecord(cmd *cobra.Command, opts exportOptions, baseURL string) (*models.AnalysisRecord, error) {
	if opts.sample {
		now := time.Now().UTC()
		return normalizer.SampleRecord(normalizer.BuildReportID("PB610-MU", now), now.Format(time.RFC3339)), nil
	}

	var (
		data []byte
		err  error
	)
	switch opts.input {
	case "":
		return nil, fmt.Errorf("either --input or --sample is required")
	case "-":
		data, err = io.ReadAll(cmd.InOrStdin())
	default:
		data, err = os.ReadFile(opts.input)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis payload: %w", err)
	}

	return normalizer.NewNormalizer(normalizer.WithReportBaseURL(baseURL)).NormalizeJSON(data)
}
