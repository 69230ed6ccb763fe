package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"report-service/internal/services"
	"report-service/internal/spreadsheet"
	"report-service/internal/utils"

	"github.com/gofiber/fiber/v3"
)

type SpreadsheetHandler struct {
	spreadsheetService *services.SpreadsheetService
}

func NewSpreadsheetHandler(spreadsheetService *services.SpreadsheetService) *SpreadsheetHandler {
	return &SpreadsheetHandler{spreadsheetService: spreadsheetService}
}

func (h *SpreadsheetHandler) Register(app *fiber.App) {
	publicGr := app.Group("spreadsheet/public/api/v1")

	publicGr.Post("/validate", h.Validate) // POST /spreadsheet/public/api/v1/validate
	publicGr.Post("/preview", h.Preview)   // POST /spreadsheet/public/api/v1/preview
}

// Validate checks name, size and declared type of the uploaded file without reading it.
func (h *SpreadsheetHandler) Validate(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Multipart field 'file' is required"))
	}

	result := h.spreadsheetService.Validate(spreadsheet.FileInfo{
		Name:     fh.Filename,
		Size:     fh.Size,
		MIMEType: fh.Header.Get(fiber.HeaderContentType),
	})
	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(result))
}

// Preview safely parses the workbook and returns header-keyed rows per sheet.
func (h *SpreadsheetHandler) Preview(c fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", "Multipart field 'file' is required"))
	}

	declared := fh.Header.Get(fiber.HeaderContentType)
	result := h.spreadsheetService.Validate(spreadsheet.FileInfo{Name: fh.Filename, Size: fh.Size, MIMEType: declared})
	if !result.IsValid {
		return c.Status(http.StatusUnprocessableEntity).JSON(
			utils.CreateValidationErrorResponse("Spreadsheet failed validation", result.Errors))
	}

	data, err := readUpload(fh, spreadsheet.MaxFileSize)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(
			utils.CreateErrorResponse("INVALID_BODY", err.Error()))
	}

	previews, err := h.spreadsheetService.Preview(spreadsheet.Upload{
		Name:     fh.Filename,
		MIMEType: declared,
		Data:     data,
	})
	if err != nil {
		var verr *spreadsheet.ValidationError
		switch {
		case errors.As(err, &verr):
			return c.Status(http.StatusUnprocessableEntity).JSON(
				utils.CreateValidationErrorResponse("Spreadsheet failed validation", verr.Errors))
		case errors.Is(err, spreadsheet.ErrUnreadableWorkbook):
			return c.Status(http.StatusUnprocessableEntity).JSON(
				utils.CreateErrorResponse("UNREADABLE_WORKBOOK", "The workbook could not be parsed"))
		}
		slog.Error("Failed to preview spreadsheet", "file_name", fh.Filename, "error", err)
		return c.Status(http.StatusInternalServerError).JSON(
			utils.CreateErrorResponse("PREVIEW_FAILED", "Failed to preview spreadsheet"))
	}

	return c.Status(http.StatusOK).JSON(utils.CreateSuccessResponse(map[string]any{
		"file_name": fh.Filename,
		"sheets":    previews,
		"count":     len(previews),
	}))
}
