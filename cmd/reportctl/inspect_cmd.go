package main

import (
	"fmt"
	"os"

	"report-service/internal/export/pdf"

	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE.pdf",
		Short: "Validate a generated PDF and print its page count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			info, err := pdf.Inspect(data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages, %d bytes\n", args[0], info.Pages, info.Size)
			return nil
		},
	}
}
