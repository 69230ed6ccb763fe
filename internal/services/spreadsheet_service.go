package services

import (
	"log/slog"

	"report-service/internal/models"
	"report-service/internal/spreadsheet"
)

type SpreadsheetService struct{}

func NewSpreadsheetService() *SpreadsheetService {
	return &SpreadsheetService{}
}

// Validate runs the file-level checks only; nothing is parsed.
func (s *SpreadsheetService) Validate(info spreadsheet.FileInfo) models.ValidationResult {
	result := spreadsheet.ValidateExcelFile(info)
	if !result.IsValid {
		slog.Info("Spreadsheet rejected",
			"file_name", info.Name,
			"size", info.Size,
			"errors", result.Errors)
	}
	return result
}

// Preview safely reads the upload and converts every sheet to header-keyed rows.
func (s *SpreadsheetService) Preview(upload spreadsheet.Upload) ([]models.SheetPreview, error) {
	wb, err := spreadsheet.SafeRead(upload)
	if err != nil {
		return nil, err
	}

	previews := make([]models.SheetPreview, 0, len(wb.SheetNames))
	for _, name := range wb.SheetNames {
		p := spreadsheet.Preview(wb.Sheets[name])
		if p.Unsafe {
			slog.Warn("Sheet contains denied formulas, rows withheld",
				"file_name", upload.Name,
				"sheet", name,
				"findings", len(spreadsheet.ScanFormulas(wb.Sheets[name])))
		}
		previews = append(previews, p)
	}
	return previews, nil
}
