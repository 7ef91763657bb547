package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-fitter/internal/compiler"
)

var countPagesCmd = &cobra.Command{
	Use:   "count-pages",
	Short: "Print the page count of a PDF",
	RunE:  runCountPages,
}

var countPagesPDF string

func init() {
	countPagesCmd.Flags().StringVar(&countPagesPDF, "pdf", "", "Path to the PDF file (required)")

	if err := countPagesCmd.MarkFlagRequired("pdf"); err != nil {
		panic(fmt.Sprintf("failed to mark pdf flag as required: %v", err))
	}

	rootCmd.AddCommand(countPagesCmd)
}

func runCountPages(cmd *cobra.Command, _ []string) error {
	pages, err := compiler.CountPDFPages(countPagesPDF)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), pages)
	return nil
}
