package export

import (
	"strconv"
	"strings"

	"report-service/internal/models"
)

const csvHeader = "SECTION,METRIC,VALUE,DETAILS"

// ExportCSV writes the flat summary table. Commas inside values are removed rather
// than quoted, which keeps every line at exactly four fields.
func ExportCSV(rec *models.AnalysisRecord) string {
	lines := []string{
		csvHeader,
		csvLine("SUMMARY", "Farm", rec.Farm.Name, ""),
		csvLine("SUMMARY", "Health Score", formatScore(rec.Health.Score), string(rec.Health.Label)),
		csvLine("SUMMARY", "Report ID", rec.ReportID, ""),
	}
	for _, iv := range rec.Interventions {
		lines = append(lines, csvLine("INTERVENTION", string(iv.Priority), iv.Action, iv.ExpectedOutcome))
	}
	return strings.Join(lines, "\n")
}

func csvLine(fields ...string) string {
	for i, f := range fields {
		fields[i] = stripCSV(f)
	}
	return strings.Join(fields, ",")
}

// stripCSV drops commas and folds line breaks so a value cannot split a row.
func stripCSV(s string) string {
	return strings.NewReplacer(",", "", "\r\n", " ", "\r", " ", "\n", " ").Replace(s)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
