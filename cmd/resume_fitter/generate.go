package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-fitter/internal/profile"
	"github.com/jonathan/resume-fitter/internal/rewriting"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a section from personal information and a job description",
	Long:  "Writes a whole LaTeX section of the given kind from info.yml and the job context, following the markup of a template section file.",
	RunE:  runGenerate,
}

var (
	generateProfileFile  string
	generateJobFile      string
	generateKind         string
	generateTemplateFile string
	generateOutputFile   string
)

func init() {
	generateCmd.Flags().StringVarP(&generateProfileFile, "profile", "p", "", "Personal information file (info.yml) (required)")
	generateCmd.Flags().StringVarP(&generateJobFile, "job", "j", "", "Job description: JSON job context or plain text")
	generateCmd.Flags().StringVarP(&generateKind, "kind", "k", "", "Section kind to generate (required)")
	generateCmd.Flags().StringVarP(&generateTemplateFile, "template", "t", "", "Example section whose markup is followed (required)")
	generateCmd.Flags().StringVarP(&generateOutputFile, "out", "o", "", "Path to the output .tex file (required)")

	for _, name := range []string{"profile", "kind", "template", "out"} {
		if err := generateCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	kind, err := sectionKind(generateKind, "")
	if err != nil {
		return err
	}
	p, err := profile.Load(generateProfileFile)
	if err != nil {
		return err
	}
	job, err := loadJob(generateJobFile)
	if err != nil {
		return err
	}
	template, err := os.ReadFile(generateTemplateFile)
	if err != nil {
		return fmt.Errorf("failed to read template section: %w", err)
	}

	// Ensure output directory exists (create early, before API call)
	if dir := filepath.Dir(generateOutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	client, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	gen := rewriting.NewGenerator(client,
		rewriting.WithProfile(p.YAML()),
		rewriting.WithForbiddenPhrases(cfg.ForbiddenPhrases),
		rewriting.WithLogger(log),
	)
	text, err := gen.GenerateSection(ctx, kind, job, string(template))
	if err != nil {
		return fmt.Errorf("failed to generate section: %w", err)
	}

	if err := os.WriteFile(generateOutputFile, []byte(text+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Generated %s section: %s\n", kind, generateOutputFile)
	return nil
}
