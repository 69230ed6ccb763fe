package spreadsheet

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"report-service/internal/metrics"
	"report-service/internal/models"

	"github.com/xuri/excelize/v2"
)

// deniedFunctions execute code, register callables, reach the network or evaluate
// arbitrary text.
var deniedFunctions = []string{
	"CALL", "EXEC", "REGISTER.ID", "REGISTER", "EVALUATE",
	"WEBSERVICE", "FILTERXML", "RTD", "DDEAUTO", "DDE", "HYPERLINK",
	"IMPORTXML", "IMPORTDATA", "IMPORTHTML", "IMPORTFEED", "IMPORTRANGE",
}

var (
	deniedCallPattern = regexp.MustCompile(`(?i)(?:^|[^A-Z0-9_.]|_xlfn\.)(` +
		strings.ReplaceAll(strings.Join(deniedFunctions, "|"), ".", `\.`) + `)\s*\(`)

	// ddeLinkPattern matches app|topic!item references such as cmd|'/C calc'!A0.
	ddeLinkPattern = regexp.MustCompile(`(?i)^\s*=?\s*[A-Z0-9_.]+\s*\|`)
)

// FormulaFinding is one denied reference found in a sheet.
type FormulaFinding struct {
	Cell     string
	Function string
}

// ScanFormulas returns every denied function reference in the sheet's formulas,
// both in the exposed rows and anywhere else in the worksheet.
func ScanFormulas(sheet *Sheet) []FormulaFinding {
	var findings []FormulaFinding
	seen := make(map[string]bool)
	check := func(ref, formula string) {
		if formula == "" || seen[ref] {
			return
		}
		seen[ref] = true
		if fn := deniedFunction(formula); fn != "" {
			findings = append(findings, FormulaFinding{Cell: ref, Function: fn})
		}
	}

	for r, row := range sheet.Rows {
		for c, cell := range row {
			ref, _ := excelize.CoordinatesToCellName(c+1, r+1)
			check(ref, cell.Formula)
		}
	}
	for _, fc := range sheet.Formulas {
		check(fc.Ref, fc.Formula)
	}
	return findings
}

func deniedFunction(formula string) string {
	if m := deniedCallPattern.FindStringSubmatch(formula); m != nil {
		return strings.ToUpper(m[1])
	}
	if ddeLinkPattern.MatchString(formula) {
		return "DDE"
	}
	return ""
}

// SheetToRows converts a sheet into header-keyed rows. A sheet with any denied
// formula yields an empty slice, never partial data. Sheets declaring more than
// MaxRowsPerSheet rows are clamped.
func SheetToRows(sheet *Sheet) []map[string]string {
	rows, _, _ := sheetToRows(sheet)
	return rows
}

// Preview is SheetToRows with the safety outcome attached.
func Preview(sheet *Sheet) models.SheetPreview {
	rows, unsafe, truncated := sheetToRows(sheet)
	return models.SheetPreview{
		Name:      sheet.Name,
		Rows:      rows,
		RowCount:  len(rows),
		Unsafe:    unsafe,
		Truncated: truncated,
	}
}

func sheetToRows(sheet *Sheet) (rows []map[string]string, unsafe, truncated bool) {
	rows = []map[string]string{}
	if sheet == nil {
		return rows, false, false
	}

	if findings := ScanFormulas(sheet); len(findings) > 0 {
		slog.Warn("Sheet rejected by formula scan",
			"sheet", sheet.Name,
			"first_cell", findings[0].Cell,
			"function", findings[0].Function,
			"finding_count", len(findings))
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("formula").Inc()
		return rows, true, false
	}
	if len(sheet.Rows) == 0 {
		return rows, false, false
	}

	data := sheet.Rows
	if sheet.UsedRows > MaxRowsPerSheet || len(data) > MaxRowsPerSheet {
		slog.Warn("Sheet exceeds row limit, clamping",
			"sheet", sheet.Name,
			"used_rows", sheet.UsedRows,
			"limit", MaxRowsPerSheet)
		truncated = true
		if len(data) > MaxRowsPerSheet {
			data = data[:MaxRowsPerSheet]
		}
	}

	headers := headerKeys(data[0])
	for _, row := range data[1:] {
		obj := make(map[string]string, len(headers))
		blank := true
		for c, key := range headers {
			if c >= len(row) {
				break
			}
			if v := row[c].Value; v != "" {
				obj[key] = v
				blank = false
			}
		}
		if !blank {
			rows = append(rows, obj)
		}
	}
	return rows, false, truncated
}

// headerKeys uses the first row as keys. Blank headers fall back to the column
// letter and repeats get a numeric suffix.
func headerKeys(row []Cell) []string {
	keys := make([]string, len(row))
	seen := make(map[string]int, len(row))
	for c, cell := range row {
		key := strings.TrimSpace(cell.Value)
		if key == "" {
			key, _ = excelize.ColumnNumberToName(c + 1)
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s_%d", key, n)
		}
		keys[c] = key
	}
	return keys
}
