package export

import (
	"fmt"

	"report-service/internal/models"
	"report-service/internal/spreadsheet"
)

const (
	summarySheet       = "Summary"
	interventionsSheet = "Interventions"
)

// interventionColumns maps header names onto intervention fields, in column order.
var interventionColumns = []struct {
	header string
	value  func(models.Intervention) string
}{
	{"Priority", func(iv models.Intervention) string { return string(iv.Priority) }},
	{"Action", func(iv models.Intervention) string { return iv.Action }},
	{"Goal", func(iv models.Intervention) string { return iv.Goal }},
	{"Timing", func(iv models.Intervention) string { return iv.Timing }},
	{"Cost", func(iv models.Intervention) string { return string(iv.CostLevel) }},
	{"Outcome", func(iv models.Intervention) string { return iv.ExpectedOutcome }},
}

// ExportExcel builds the two-sheet workbook through the spreadsheet SafeWriter.
func ExportExcel(rec *models.AnalysisRecord) ([]byte, error) {
	w := spreadsheet.NewSafeWriter()
	defer w.Close()

	summary := [][]string{
		{"Report ID", rec.ReportID},
		{"Farm Name", rec.Farm.Name},
		{"Health Score", fmt.Sprintf("%s (%s)", formatScore(rec.Health.Score), rec.Health.Label)},
		{"Executive Summary", rec.Health.ExecutiveSummary},
	}
	if err := w.AddSheet(summarySheet, summary); err != nil {
		return nil, fmt.Errorf("failed to write summary sheet: %w", err)
	}

	headers := make([]string, len(interventionColumns))
	for i, col := range interventionColumns {
		headers[i] = col.header
	}
	records := make([]map[string]string, 0, len(rec.Interventions))
	for _, iv := range rec.Interventions {
		row := make(map[string]string, len(interventionColumns))
		for _, col := range interventionColumns {
			row[col.header] = col.value(iv)
		}
		records = append(records, row)
	}
	if err := w.AddRecords(interventionsSheet, headers, records); err != nil {
		return nil, fmt.Errorf("failed to write interventions sheet: %w", err)
	}

	return w.Bytes()
}
