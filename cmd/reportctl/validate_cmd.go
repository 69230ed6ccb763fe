package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"report-service/internal/spreadsheet"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"
)

// =============================================================================
// VALIDATE COMMAND - spreadsheet checks and safe preview
// =============================================================================

var errInvalidSpreadsheet = errors.New("spreadsheet is not valid")

func newValidateCmd() *cobra.Command {
	var showRows bool

	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Validate an Excel workbook and preview its sheets safely",
		Long: `Runs the size, extension and content type checks, then parses the workbook
and reports per sheet whether its rows are safe to import.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], showRows)
		},
	}
	cmd.Flags().BoolVar(&showRows, "rows", false, "print the safe rows of every sheet as JSON")
	return cmd
}

func runValidate(cmd *cobra.Command, path string, showRows bool) error {
	out := cmd.OutOrStdout()

	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	// The size check runs before the file is read.
	if err := spreadsheet.ValidateFileSize(stat.Size()); err != nil {
		fmt.Fprintf(out, "INVALID %s\n  - %s\n", filepath.Base(path), err)
		return errInvalidSpreadsheet
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	detected := localMIMEType(path, data)

	wb, err := spreadsheet.SafeRead(spreadsheet.Upload{
		Name:     filepath.Base(path),
		MIMEType: detected,
		Data:     data,
	})
	if err != nil {
		fmt.Fprintf(out, "INVALID %s (%s)\n", filepath.Base(path), detected)
		var verr *spreadsheet.ValidationError
		if errors.As(err, &verr) {
			for _, e := range verr.Errors {
				fmt.Fprintf(out, "  - %s\n", e)
			}
		} else {
			fmt.Fprintf(out, "  - %s\n", err)
		}
		return errInvalidSpreadsheet
	}

	fmt.Fprintf(out, "VALID %s (%d sheets)\n", filepath.Base(path), len(wb.SheetNames))
	for _, name := range wb.SheetNames {
		p := spreadsheet.Preview(wb.Sheets[name])
		status := "ok"
		if p.Unsafe {
			status = "withheld: denied formulas"
			for _, f := range spreadsheet.ScanFormulas(wb.Sheets[name]) {
				fmt.Fprintf(out, "    %s!%s uses %s\n", name, f.Cell, f.Function)
			}
		} else if p.Truncated {
			status = "truncated"
		}
		fmt.Fprintf(out, "  %-31s %6d rows  %s\n", name, p.RowCount, status)

		if showRows && !p.Unsafe {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(p.Rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// localMIMEType stands in for the type a browser would declare. When sniffing only
// reaches the generic zip container the workbook flavour comes from the extension.
func localMIMEType(path string, data []byte) string {
	detected := mimetype.Detect(data)
	if !detected.Is("application/zip") {
		return detected.String()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return spreadsheet.MIMESpreadsheet
	case ".xlsm":
		return spreadsheet.MIMEMacroEnabled
	}
	return detected.String()
}
