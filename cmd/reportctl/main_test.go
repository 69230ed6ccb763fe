package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"report-service/internal/spreadsheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeWorkbook(t *testing.T, dir string, rows [][]string) string {
	t.Helper()
	w := spreadsheet.NewSafeWriter()
	defer w.Close()
	require.NoError(t, w.AddSheet("Fields", rows))
	data, err := w.Bytes()
	require.NoError(t, err)

	path := filepath.Join(dir, "fields.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// ============================================================================
// TEST SUITE 1: EXPORT
// ============================================================================

func TestExport_FromInputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "analysis.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"farm_name":"North Block","scan_date":"2024-11-18","health_score":80}`), 0o644))

	out, err := run(t, "export", "--input", input, "--format", "csv", "--out", dir)

	require.NoError(t, err)
	path := filepath.Join(dir, "CropHealthReport_North_Block_2024-11-18.csv")
	assert.Contains(t, out, path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "SECTION,METRIC,VALUE,DETAILS\n"))
	assert.Contains(t, string(data), "SUMMARY,Health Score,80,GOOD")
}

func TestExport_Errors(t *testing.T) {
	_, err := run(t, "export", "--format", "csv")
	assert.ErrorContains(t, err, "--input or --sample")

	_, err = run(t, "export", "--sample", "--format", "docx", "--out", t.TempDir())
	assert.ErrorContains(t, err, "unsupported export format")

	_, err = run(t, "export", "--sample", "--input", "x.json")
	assert.Error(t, err)
}

// ============================================================================
// TEST SUITE 2: VALIDATE AND INSPECT
// ============================================================================

func TestValidate_Workbook(t *testing.T) {
	path := writeWorkbook(t, t.TempDir(), [][]string{{"Field", "Crop"}, {"North", "Mustard"}})

	out, err := run(t, "validate", "--rows", path)

	require.NoError(t, err)
	assert.Contains(t, out, "VALID fields.xlsx (1 sheets)")
	assert.Contains(t, out, `"Crop": "Mustard"`)
}

func TestValidate_RejectsNonWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))

	out, err := run(t, "validate", path)

	assert.ErrorIs(t, err, errInvalidSpreadsheet)
	assert.Contains(t, out, "INVALID notes.txt")
	assert.Contains(t, out, ".xlsx")
}

func TestInspect_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := run(t, "inspect", path)

	assert.Error(t, err)
}
