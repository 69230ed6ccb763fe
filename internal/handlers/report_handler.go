package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"report-service/internal/export"
	"report-service/internal/normalizer"
	"report-service/internal/services"
	"report-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

const maxImageUploadBytes = 8 << 20

type ReportHandler struct {
	reportService   *services.ReportService
	analysisService *services.AnalysisService
}

func NewReportHandler(reportService *services.ReportService, analysisService *services.AnalysisService) *ReportHandler {
	return &ReportHandler{
		reportService:   reportService,
		analysisService: analysisService,
	}
}

func (h *ReportHandler) Register(app *fiber.App) {
	publicGr := app.Group("report/public/api/v1")

	publicGr.Post("/normalize", h.Normalize)        // POST /report/public/api/v1/normalize
	publicGr.Post("/export/:format", h.Export)      // POST /report/public/api/v1/export/:format
	publicGr.Post("/analyze", h.Analyze)            // POST /report/public/api/v1/analyze
	publicGr.Get("/sample/:format", h.ExportSample) // GET /report/public/api/v1/sample/:format
}

// Normalize returns the canonical record for a raw or legacy analysis payload.
func (h *ReportHandler) Normalize(c fiber.Ctx) error {
	rec, err := h.reportService.Normalize(c.Body())
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Request body must be a JSON object"))
	}
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(rec))
}

// Export normalizes the payload and streams the artifact as a download.
func (h *ReportHandler) Export(c fiber.Ctx) error {
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_FORMAT", "Format must be one of pdf, csv, xlsx, json"))
	}

	artifact, err := h.reportService.Export(c.Context(), c.Body(), format)
	if err != nil {
		if errors.Is(err, normalizer.ErrNotAnObject) {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("INVALID_BODY", "Request body must be a JSON object"))
		}
		slog.Error("Failed to export report", "format", format, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("EXPORT_FAILED", "Failed to export report"))
	}

	return sendArtifact(c, artifact)
}

// ExportSample renders the built-in sample record, useful for checking layouts.
func (h *ReportHandler) ExportSample(c fiber.Ctx) error {
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_FORMAT", "Format must be one of pdf, csv, xlsx, json"))
	}

	rec := normalizer.SampleRecord("FARM-SAMPLE-20241118", "2024-11-18T09:30:00Z")
	artifact, err := h.reportService.ExportRecord(c.Context(), rec, format)
	if err != nil {
		slog.Error("Failed to export sample report", "format", format, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("EXPORT_FAILED", "Failed to export sample report"))
	}
	return sendArtifact(c, artifact)
}

// Analyze sends uploaded field images to the AI model and returns the normalized record.
// Form fields farmName, cropType, location, areaHectares and scanDate are optional context.
func (h *ReportHandler) Analyze(c fiber.Ctx) error {
	if !h.analysisService.Available() {
		return c.Status(http.StatusServiceUnavailable).JSON(
			utils.CreateErrorResponse("AI_UNAVAILABLE", "AI analysis is not configured"))
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Expected multipart form data with images"))
	}

	images := make([][]byte, 0, len(form.File["images"]))
	for _, fh := range form.File["images"] {
		data, err := readUpload(fh, maxImageUploadBytes)
		if err != nil {
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("INVALID_IMAGE", err.Error()))
		}
		images = append(images, data)
	}

	farm := map[string]string{}
	for _, key := range []string{"farmName", "cropType", "location", "areaHectares", "scanDate"} {
		if v := strings.TrimSpace(c.FormValue(key)); v != "" {
			farm[key] = v
		}
	}

	rec, err := h.analysisService.Analyze(c.Context(), images, farm)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrNoImages), errors.Is(err, services.ErrNotAnImage):
			return c.Status(http.StatusBadRequest).JSON(
				utils.CreateErrorResponse("INVALID_IMAGE", err.Error()))
		case errors.Is(err, services.ErrAIUnavailable):
			return c.Status(http.StatusServiceUnavailable).JSON(
				utils.CreateErrorResponse("AI_UNAVAILABLE", "AI analysis is not configured"))
		}
		slog.Error("AI analysis failed", "image_count", len(images), "error", err)
		return c.Status(http.StatusBadGateway).JSON(
			utils.CreateErrorResponse("ANALYSIS_FAILED", "AI analysis failed"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(rec))
}

func sendArtifact(c fiber.Ctx, artifact export.Artifact) error {
	c.Attachment(artifact.Filename)
	c.Set(fiber.HeaderContentType, artifact.ContentType)
	return c.Status(http.StatusOK).Send(artifact.Data)
}

func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("file %q exceeds %d bytes", fh.Filename, limit)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %q: %w", fh.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("file %q exceeds %d bytes", fh.Filename, limit)
	}
	return data, nil
}
