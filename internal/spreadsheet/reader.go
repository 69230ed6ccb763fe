package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"report-service/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
)

// Unzipped parts of a 10 MiB upload may not exceed these.
const (
	unzipSizeLimit    int64 = 256 << 20
	unzipXMLSizeLimit int64 = 64 << 20
	maxScanColumns          = 256
)

var ErrUnreadableWorkbook = errors.New("workbook could not be parsed")

// ValidationError lists every reason an upload was refused.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "spreadsheet validation failed: " + strings.Join(e.Errors, "; ")
}

// Upload is an uploaded workbook with the metadata the client declared for it.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
}

type Cell struct {
	Value   string
	Formula string
}

// Sheet holds at most MaxRowsPerSheet rows of at most maxScanColumns cells. UsedRows
// is the row count the sheet itself declares, which may be larger. Formulas covers
// the whole worksheet regardless of those limits.
type Sheet struct {
	Name      string
	Dimension string
	UsedRows  int
	Rows      [][]Cell
	Formulas  []FormulaCell
}

type Workbook struct {
	SheetNames []string
	Sheets     map[string]*Sheet
}

// SafeRead validates an upload and parses it. Nothing is parsed when validation fails.
func SafeRead(upload Upload) (*Workbook, error) {
	result := ValidateExcelFile(FileInfo{
		Name:     upload.Name,
		Size:     int64(len(upload.Data)),
		MIMEType: upload.MIMEType,
	})
	if !result.IsValid {
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("file_checks").Inc()
		return nil, &ValidationError{Errors: result.Errors}
	}

	if !isZipContainer(upload.Data) {
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("content_type").Inc()
		return nil, &ValidationError{Errors: []string{"file content is not an Excel workbook"}}
	}

	wb := parseWorkbook(upload.Data)
	if wb == nil {
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("parse").Inc()
		return nil, ErrUnreadableWorkbook
	}

	if len(wb.SheetNames) == 0 {
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("no_sheets").Inc()
		return nil, &ValidationError{Errors: []string{"workbook contains no sheets"}}
	}

	var problems []string
	for _, name := range wb.SheetNames {
		if wb.Sheets[name] == nil {
			problems = append(problems, fmt.Sprintf("sheet %q is referenced but missing", name))
			continue
		}
		if err := ValidateSheetName(name); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		metrics.SpreadsheetRejectionsTotal.WithLabelValues("sheet_structure").Inc()
		return nil, &ValidationError{Errors: problems}
	}

	slog.Info("Spreadsheet read",
		"file_name", upload.Name,
		"size", len(upload.Data),
		"sheet_count", len(wb.SheetNames))

	return wb, nil
}

func isZipContainer(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is("application/zip") {
			return true
		}
	}
	return false
}

// parseWorkbook returns nil on any failure, including a panic inside the parser.
func parseWorkbook(data []byte) (wb *Workbook) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Spreadsheet parser panicked",
				"error_kind", "panic",
				"error", fmt.Sprintf("%v", r))
			wb = nil
		}
	}()

	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		RawCellValue:      true,
		UnzipSizeLimit:    unzipSizeLimit,
		UnzipXMLSizeLimit: unzipXMLSizeLimit,
	})
	if err != nil {
		slog.Error("Failed to open workbook",
			"error_kind", fmt.Sprintf("%T", err),
			"error", err)
		return nil
	}
	defer f.Close()

	formulas, err := collectFormulas(data)
	if err != nil {
		slog.Error("Failed to scan workbook formulas",
			"error_kind", fmt.Sprintf("%T", err),
			"error", err)
		return nil
	}

	wb = &Workbook{Sheets: make(map[string]*Sheet)}
	for _, name := range f.GetSheetList() {
		wb.SheetNames = append(wb.SheetNames, name)
		sheet, err := readSheet(f, name)
		if err != nil {
			slog.Warn("Failed to read sheet",
				"sheet", name,
				"error_kind", fmt.Sprintf("%T", err),
				"error", err)
			continue
		}
		sheet.Formulas = formulas[name]
		wb.Sheets[name] = sheet
	}
	return wb
}

func readSheet(f *excelize.File, name string) (*Sheet, error) {
	sheet := &Sheet{Name: name}

	dimCols := 0
	if dim, err := f.GetSheetDimension(name); err == nil && dim != "" {
		sheet.Dimension = dim
		refs := strings.Split(dim, ":")
		if col, row, err := excelize.CellNameToCoordinates(refs[len(refs)-1]); err == nil {
			sheet.UsedRows = row
			dimCols = min(col, maxScanColumns)
		}
	}

	rows, err := f.Rows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %q: %w", name, err)
	}
	defer rows.Close()

	var values [][]string
	for rows.Next() {
		if len(values) >= MaxRowsPerSheet {
			break
		}
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %q: %w", len(values)+1, name, err)
		}
		values = append(values, cols)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", name, err)
	}
	if sheet.UsedRows < len(values) {
		sheet.UsedRows = len(values)
	}

	width := dimCols
	for _, cols := range values {
		width = max(width, min(len(cols), maxScanColumns))
	}

	sheet.Rows = make([][]Cell, len(values))
	for r, cols := range values {
		row := make([]Cell, width)
		for c := 0; c < width; c++ {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if c < len(cols) {
				row[c].Value = cols[c]
			}
			if formula, err := f.GetCellFormula(name, ref); err == nil {
				row[c].Formula = formula
			}
			if row[c].Value != "" && row[c].Formula == "" {
				row[c].Value = dateValue(f, name, ref, row[c].Value)
			}
		}
		sheet.Rows[r] = row
	}
	return sheet, nil
}

// dateValue renders a date-formatted serial number as an ISO date. Everything else
// is returned as stored.
func dateValue(f *excelize.File, sheet, ref, raw string) string {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	styleID, err := f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return raw
	}
	style, err := f.GetStyle(styleID)
	if err != nil || !isDateFormat(style) {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	if serial == float64(int64(serial)) {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02T15:04:05")
}

func isDateFormat(style *excelize.Style) bool {
	switch {
	case style.NumFmt >= 14 && style.NumFmt <= 22:
		return true
	case style.NumFmt >= 45 && style.NumFmt <= 47:
		return true
	case style.CustomNumFmt != nil:
		format := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(format, "yy") || strings.Contains(format, "dd")
	}
	return false
}
