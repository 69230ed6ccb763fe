package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"report-service/internal/ai/gemini"
	"report-service/internal/config"
	"report-service/internal/event"
	"report-service/internal/export"
	"report-service/internal/export/pdf"
	"report-service/internal/handlers"
	"report-service/internal/imagery"
	"report-service/internal/metrics"
	"report-service/internal/normalizer"
	"report-service/internal/services"
	"report-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func setupLogging(logDir string) (*os.File, error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("Recovered from panic: %v\n", r)
		}
	}()

	fmt.Println("Log directory:", logDir)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	if absPath, err := filepath.Abs(logFile); err == nil {
		fmt.Printf("Logging to %s\n", absPath)
	}

	out := io.MultiWriter(file, os.Stdout)
	slog.SetDefault(slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo})))
	log.SetOutput(out)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file loaded, using environment")
	}
	cfg := config.New()

	logFile, err := setupLogging(cfg.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ============================================================================
	// EXPORT EVENTS
	// ============================================================================

	var publisher event.Publisher = event.NoopPublisher{}
	if cfg.RabbitMQCfg.Enabled {
		conn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
		if err != nil {
			slog.Error("RabbitMQ unavailable, export events disabled", "error", err)
		} else {
			defer conn.Close()
			publisher = event.NewExportPublisher(conn, cfg.RabbitMQCfg.Queue)
		}
	}

	pool := worker.NewWorkingPool(cfg.WorkerCfg.Workers, cfg.WorkerCfg.QueueSize)
	var poolWg sync.WaitGroup
	poolWg.Add(1)
	go pool.Start(ctx, &poolWg)

	// ============================================================================
	// AI ANALYSIS
	// ============================================================================

	var selector *gemini.GeminiClientSelector
	if cfg.GeminiAPICfg.APIKeys != "" {
		clients, err := gemini.NewClientsFromKeys(cfg.GeminiAPICfg.APIKeys, cfg.GeminiAPICfg.FlashName, cfg.GeminiAPICfg.ProName)
		if err != nil {
			slog.Error("Gemini clients unavailable, AI analysis disabled", "error", err)
		} else {
			selector = gemini.NewGeminiClientSelector(clients, gemini.WithCooldown(cfg.GeminiAPICfg.ClientCooldown))
			slog.Info("Gemini clients initialised", "count", len(clients))
		}
	}

	// ============================================================================
	// REPORT PIPELINE
	// ============================================================================

	norm := normalizer.NewNormalizer(normalizer.WithReportBaseURL(cfg.ReportCfg.ReportBaseURL))
	renderer := pdf.NewRenderer(
		pdf.Branding{Title: cfg.ReportCfg.Title, Subtitle: cfg.ReportCfg.Subtitle, Author: "Agrisa"},
		pdf.WithImageLoader(imagery.NewLoader(cfg.ImageryCfg.FetchTimeout, cfg.ImageryCfg.MaxBytes,
			imagery.WithAllowedHosts(cfg.ImageryCfg.AllowedHosts...),
			imagery.WithPrivateNetworks(cfg.ImageryCfg.AllowPrivateNetworks),
		)),
	)
	exporter := export.NewExporter(cfg.ReportCfg.ProductName, renderer)

	reportService := services.NewReportService(norm, exporter, publisher, pool)
	analysisService := services.NewAnalysisService(selector, norm, cfg.GeminiAPICfg.ProName)
	spreadsheetService := services.NewSpreadsheetService()

	app := fiber.New(fiber.Config{
		AppName:   "report-service",
		BodyLimit: 12 << 20,
	})
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Report service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.NewReportHandler(reportService, analysisService).Register(app)
	handlers.NewSpreadsheetHandler(spreadsheetService).Register(app)

	go func() {
		<-ctx.Done()
		slog.Info("Shutdown signal received")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Report service starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server stopped", "error", err)
	}

	stop()
	poolWg.Wait()
	slog.Info("Report service stopped")
}
