package export

import (
	"fmt"
	"strings"

	"report-service/internal/models"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// Formats lists every supported format in the order ExportAll produces them.
var Formats = []Format{FormatPDF, FormatCSV, FormatXLSX, FormatJSON}

var contentTypes = map[Format]string{
	FormatPDF:  "application/pdf",
	FormatCSV:  "text/csv; charset=utf-8",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	FormatJSON: "application/json",
}

// ParseFormat accepts format names case-insensitively, including the excel/xls aliases.
func ParseFormat(s string) (Format, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(s)); normalized {
	case "pdf":
		return FormatPDF, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel", "xls":
		return FormatXLSX, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	return contentTypes[f]
}

// Filename is <product>_<farm name with spaces as underscores>_<scan date>.<ext>.
func Filename(product string, rec *models.AnalysisRecord, f Format) string {
	name := strings.NewReplacer(" ", "_", "/", "-", `\`, "-").Replace(rec.Farm.Name)
	date := strings.NewReplacer("/", "-", `\`, "-").Replace(rec.Farm.ScanDate)
	return fmt.Sprintf("%s_%s_%s%s", product, name, date, f.Extension())
}
