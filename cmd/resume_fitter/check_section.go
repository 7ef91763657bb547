package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-fitter/internal/observability"
	"github.com/jonathan/resume-fitter/internal/sections"
)

var checkSectionCmd = &cobra.Command{
	Use:   "check-section",
	Short: "Validate (and optionally repair) a LaTeX section file",
	Long:  "Checks a section file for unbalanced braces and environments and reports its items and removable units. With --repair, a malformed file is repaired in place or written to --out.",
	RunE:  runCheckSection,
}

var (
	checkSectionIn     string
	checkSectionKind   string
	checkSectionRepair bool
	checkSectionOut    string
)

func init() {
	checkSectionCmd.Flags().StringVarP(&checkSectionIn, "in", "i", "", "Path to the section .tex file (required)")
	checkSectionCmd.Flags().StringVarP(&checkSectionKind, "kind", "k", "", "Section kind (defaults to the file name, e.g. projects.tex)")
	checkSectionCmd.Flags().BoolVar(&checkSectionRepair, "repair", false, "Repair a malformed section")
	checkSectionCmd.Flags().StringVarP(&checkSectionOut, "out", "o", "", "Where to write the repaired section (defaults to --in)")

	if err := checkSectionCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(checkSectionCmd)
}

// sectionKind resolves the kind from the flag or the file name.
func sectionKind(flag, path string) (sections.Kind, error) {
	if flag != "" {
		return sections.ParseKind(flag)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	kind, err := sections.ParseKind(base)
	if err != nil {
		return "", fmt.Errorf("cannot infer the section kind from %s, use --kind: %w", path, err)
	}
	return kind, nil
}

func runCheckSection(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	kind, err := sectionKind(checkSectionKind, checkSectionIn)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(checkSectionIn)
	if err != nil {
		return fmt.Errorf("failed to read section file: %w", err)
	}
	raw := string(content)

	if err := sections.Validate(raw); err != nil {
		if !checkSectionRepair {
			return fmt.Errorf("section %s is malformed: %w", checkSectionIn, err)
		}
		raw = sections.Repair(raw)
		if err := sections.Validate(raw); err != nil {
			return fmt.Errorf("section %s could not be repaired: %w", checkSectionIn, err)
		}
		target := checkSectionOut
		if target == "" {
			target = checkSectionIn
		}
		if err := os.WriteFile(target, []byte(raw), 0644); err != nil {
			return fmt.Errorf("failed to write repaired section: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Repaired section written to %s\n", target)
	}

	s, err := sections.Parse(kind, raw)
	if err != nil {
		return err
	}
	observability.NewPrinter(out).PrintSectionCheck(s)
	return nil
}
