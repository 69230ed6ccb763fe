package spreadsheet

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	minColumnWidth = 10.0
	maxColumnWidth = 60.0
)

// SafeWriter builds workbooks whose sheet names are validated and whose cells are
// always typed strings, so no written value is ever interpreted as a formula.
type SafeWriter struct {
	file   *excelize.File
	sheets []string
}

func NewSafeWriter() *SafeWriter {
	return &SafeWriter{file: excelize.NewFile()}
}

// AddSheet writes rows starting at A1. The first sheet added replaces the default one.
func (w *SafeWriter) AddSheet(name string, rows [][]string) error {
	if err := ValidateSheetName(name); err != nil {
		return err
	}

	if len(w.sheets) == 0 {
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to rename default sheet: %w", err)
		}
	} else {
		for _, existing := range w.sheets {
			if existing == name {
				return fmt.Errorf("sheet %q already exists", name)
			}
		}
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
	}
	w.sheets = append(w.sheets, name)

	widths := map[int]int{}
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := w.file.SetCellStr(name, cell, value); err != nil {
				return fmt.Errorf("failed to write %s!%s: %w", name, cell, err)
			}
			widths[c] = max(widths[c], utf8.RuneCountInString(value))
		}
	}

	for c, width := range widths {
		col, _ := excelize.ColumnNumberToName(c + 1)
		if err := w.file.SetColWidth(name, col, col, clampWidth(float64(width)+2)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return nil
}

// AddRecords writes a header row from columns followed by one row per record.
func (w *SafeWriter) AddRecords(name string, columns []string, records []map[string]string) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, columns)
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		rows = append(rows, row)
	}
	return w.AddSheet(name, rows)
}

func (w *SafeWriter) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// Bytes serializes the workbook. The writer should not be used afterwards.
func (w *SafeWriter) Bytes() ([]byte, error) {
	if len(w.sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	w.file.SetActiveSheet(0)
	buf, err := w.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *SafeWriter) Close() error {
	return w.file.Close()
}

func clampWidth(w float64) float64 {
	return min(max(w, minColumnWidth), maxColumnWidth)
}
