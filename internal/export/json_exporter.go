package export

import (
	"encoding/json"
	"fmt"

	"report-service/internal/models"
)

// ExportJSON is the full record indented by two spaces.
func ExportJSON(rec *models.AnalysisRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis record: %w", err)
	}
	return string(data), nil
}
