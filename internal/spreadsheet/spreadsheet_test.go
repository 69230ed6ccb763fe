package spreadsheet

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type formulaCell struct {
	ref     string
	formula string
}

// buildWorkbook writes rows to Sheet1 and sets the given formulas.
func buildWorkbook(t *testing.T, rows [][]string, formulas ...formulaCell) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, v := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellStr("Sheet1", ref, v))
		}
	}
	for _, fc := range formulas {
		require.NoError(t, f.SetCellFormula("Sheet1", fc.ref, fc.formula))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func xlsxUpload(data []byte) Upload {
	return Upload{Name: "field-data.xlsx", MIMEType: MIMESpreadsheet, Data: data}
}

func readSingleSheet(t *testing.T, data []byte) *Sheet {
	t.Helper()
	wb, err := SafeRead(xlsxUpload(data))
	require.NoError(t, err)
	require.Equal(t, []string{"Sheet1"}, wb.SheetNames)
	return wb.Sheets["Sheet1"]
}

// ============================================================================
// TEST SUITE 1: FILE CHECKS
// ============================================================================

func TestValidateFileSize_Boundary(t *testing.T) {
	assert.NoError(t, ValidateFileSize(10485760))
	assert.ErrorIs(t, ValidateFileSize(10485761), ErrFileTooLarge)
}

func TestValidateFileExtension(t *testing.T) {
	assert.NoError(t, ValidateFileExtension("report.xlsx"))
	assert.NoError(t, ValidateFileExtension("REPORT.XLSM"))
	assert.ErrorIs(t, ValidateFileExtension("report.txt"), ErrInvalidExtension)
	assert.ErrorIs(t, ValidateFileExtension("report.xls"), ErrInvalidExtension)
	assert.ErrorIs(t, ValidateFileExtension("report"), ErrInvalidExtension)
}

func TestValidateFileType(t *testing.T) {
	assert.NoError(t, ValidateFileType(MIMESpreadsheet))
	assert.NoError(t, ValidateFileType(MIMEMacroEnabled))
	assert.ErrorIs(t, ValidateFileType("text/csv"), ErrInvalidFileType)
	assert.ErrorIs(t, ValidateFileType(""), ErrInvalidFileType)
}

func TestValidateFileType_CaseAndParameters(t *testing.T) {
	assert.NoError(t, ValidateFileType(strings.ToUpper(MIMESpreadsheet)))
	assert.NoError(t, ValidateFileType("application/vnd.ms-excel.sheet.macroenabled.12"))
	assert.NoError(t, ValidateFileType(MIMESpreadsheet+"; charset=binary"))
	assert.NoError(t, ValidateFileType("  "+MIMESpreadsheet+" "))
	assert.ErrorIs(t, ValidateFileType("text/plain; x="+MIMESpreadsheet), ErrInvalidFileType)
}

func TestValidateExcelFile_Passes(t *testing.T) {
	result := ValidateExcelFile(FileInfo{Name: "data.xlsx", Size: 10485760, MIMEType: MIMESpreadsheet})

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateExcelFile_SizeOnly(t *testing.T) {
	result := ValidateExcelFile(FileInfo{Name: "data.xlsx", Size: 10485761, MIMEType: MIMESpreadsheet})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "10 MB")
}

func TestValidateExcelFile_WrongExtension(t *testing.T) {
	result := ValidateExcelFile(FileInfo{Name: "data.txt", Size: 2048, MIMEType: MIMESpreadsheet})

	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], ".xlsx")
}

func TestValidateExcelFile_AccumulatesAllErrors(t *testing.T) {
	result := ValidateExcelFile(FileInfo{Name: "data.csv", Size: MaxFileSize + 1, MIMEType: "text/csv"})

	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 3)
}

func TestValidateSheetName(t *testing.T) {
	assert.NoError(t, ValidateSheetName("Summary"))
	assert.NoError(t, ValidateSheetName(strings.Repeat("a", 31)))

	assert.Error(t, ValidateSheetName(""))
	assert.Error(t, ValidateSheetName(strings.Repeat("a", 32)))
	for _, bad := range []string{`a\b`, "a/b", "a?b", "a*b", "a[b", "a]b", "a:b"} {
		assert.Error(t, ValidateSheetName(bad), bad)
	}
}

// ============================================================================
// TEST SUITE 2: SAFE READ
// ============================================================================

func TestSafeRead_RejectsBeforeParsing(t *testing.T) {
	_, err := SafeRead(Upload{Name: "notes.txt", MIMEType: "text/plain", Data: []byte("not a workbook")})

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Len(t, vErr.Errors, 2)
}

func TestSafeRead_RejectsNonZipContent(t *testing.T) {
	_, err := SafeRead(xlsxUpload([]byte("plain text pretending to be a workbook")))

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Errors[0], "not an Excel workbook")
}

func TestSafeRead_ReadsValuesAndFormulas(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"Plot", "N", "Total"}, {"North", "42", ""}},
		formulaCell{ref: "C2", formula: "B2*2"},
	)

	sheet := readSingleSheet(t, data)

	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "North", sheet.Rows[1][0].Value)
	assert.Equal(t, "B2*2", sheet.Rows[1][2].Formula)
}

func TestParseWorkbook_CorruptZip(t *testing.T) {
	assert.Nil(t, parseWorkbook([]byte("PK\x03\x04 truncated")))
}

// ============================================================================
// TEST SUITE 3: FORMULA SCAN AND ROWS
// ============================================================================

func TestSheetToRows_DeniedFormulaEmptiesSheet(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"Plot", "N", "Lookup"}, {"North", "42", ""}, {"South", "38", ""}},
		formulaCell{ref: "C2", formula: `WEBSERVICE("http://evil")`},
	)

	sheet := readSingleSheet(t, data)
	rows := SheetToRows(sheet)

	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.True(t, Preview(sheet).Unsafe)
}

func TestSheetToRows_ArithmeticFormulaKeepsRows(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"A", "B", "Sum"}, {"1", "2", ""}},
		formulaCell{ref: "C2", formula: "A2+B2"},
	)

	rows := SheetToRows(readSingleSheet(t, data))

	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["A"])
	assert.Equal(t, "2", rows[0]["B"])
}

func TestSheetToRows_DeniedFormulaBeyondColumnLimit(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"name"}, {"secret"}},
		formulaCell{ref: "IX2", formula: `WEBSERVICE("http://evil")`},
	)

	sheet := readSingleSheet(t, data)

	for _, row := range sheet.Rows {
		assert.LessOrEqual(t, len(row), maxScanColumns)
	}
	assert.Equal(t, []FormulaFinding{{Cell: "IX2", Function: "WEBSERVICE"}}, ScanFormulas(sheet))
	assert.Empty(t, SheetToRows(sheet))
	assert.True(t, Preview(sheet).Unsafe)
}

func TestSheetToRows_DeniedFormulaBeyondRowLimit(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"name"}, {"secret"}},
		formulaCell{ref: "A10010", formula: `_xlfn.WEBSERVICE("http://evil")`},
	)

	sheet := readSingleSheet(t, data)

	assert.LessOrEqual(t, len(sheet.Rows), MaxRowsPerSheet)
	assert.Empty(t, SheetToRows(sheet))
	assert.True(t, Preview(sheet).Unsafe)
}

func TestCollectFormulas_MapsSheetsByName(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	_, err := f.NewSheet("Crops")
	require.NoError(t, err)
	require.NoError(t, f.SetCellFormula("Crops", "B2", "SUM(A1:A2)"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	formulas, err := collectFormulas(buf.Bytes())

	require.NoError(t, err)
	assert.Equal(t, []FormulaCell{{Ref: "B2", Formula: "SUM(A1:A2)"}}, formulas["Crops"])
	assert.Empty(t, formulas["Sheet1"])
}

func TestDeniedFunction(t *testing.T) {
	cases := map[string]string{
		`webservice("http://x")`:             "WEBSERVICE",
		`_xlfn.WEBSERVICE("http://x")`:       "WEBSERVICE",
		`IF(A1>0, HYPERLINK("http://x"), 0)`: "HYPERLINK",
		`REGISTER.ID("kernel32","Beep")`:     "REGISTER.ID",
		`cmd|'/C calc'!A0`:                   "DDE",
		`SUM(A1:A9)`:                         "",
		`A1+B1`:                              "",
		`MYCALL(A1)`:                         "",
	}
	for formula, want := range cases {
		assert.Equal(t, want, deniedFunction(formula), formula)
	}
}

func TestSheetToRows_ClampsLargeSheets(t *testing.T) {
	sheet := &Sheet{Name: "Big", UsedRows: MaxRowsPerSheet + 500}
	sheet.Rows = append(sheet.Rows, []Cell{{Value: "id"}})
	for i := 0; i < MaxRowsPerSheet+5; i++ {
		sheet.Rows = append(sheet.Rows, []Cell{{Value: "x"}})
	}

	preview := Preview(sheet)

	assert.True(t, preview.Truncated)
	assert.Equal(t, MaxRowsPerSheet-1, preview.RowCount)
}

func TestHeaderKeys_BlankAndDuplicate(t *testing.T) {
	keys := headerKeys([]Cell{{Value: "Name"}, {Value: ""}, {Value: "Name"}})

	assert.Equal(t, []string{"Name", "B", "Name_2"}, keys)
}

// ============================================================================
// TEST SUITE 4: SAFE WRITER
// ============================================================================

func TestSafeWriter_WritesTypedStrings(t *testing.T) {
	w := NewSafeWriter()
	defer w.Close()

	require.NoError(t, w.AddSheet("Summary", [][]string{{"Label", "Value"}, {"Note", `=HYPERLINK("http://evil")`}}))
	require.NoError(t, w.AddRecords("Rows", []string{"Priority", "Action"}, []map[string]string{
		{"Priority": "P1", "Action": "Irrigate"},
	}))
	data, err := w.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(strings.NewReader(string(data)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Rows"}, f.GetSheetList())
	formula, err := f.GetCellFormula("Summary", "B2")
	require.NoError(t, err)
	assert.Empty(t, formula)
	value, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, `=HYPERLINK("http://evil")`, value)

	action, err := f.GetCellValue("Rows", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Irrigate", action)
}

func TestSafeWriter_RejectsBadSheetNames(t *testing.T) {
	w := NewSafeWriter()
	defer w.Close()

	assert.Error(t, w.AddSheet("bad/name", nil))
	require.NoError(t, w.AddSheet("Summary", nil))
	assert.Error(t, w.AddSheet("Summary", nil))
}
