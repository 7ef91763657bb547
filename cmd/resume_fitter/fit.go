package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/db"
	"github.com/jonathan/resume-fitter/internal/logger"
	"github.com/jonathan/resume-fitter/internal/observability"
	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/types"
)

// fitOptions are the flags shared by fit and expand.
type fitOptions struct {
	sectionsDir string
	jobFile     string
	profileFile string
	pages       int
	outDir      string
	template    string
	ranker      string
	normalize   bool
	resultFile  string
	name        string
	verbose     bool
}

func newFitCommand(mode types.Mode) *cobra.Command {
	opts := &fitOptions{}
	cmd := &cobra.Command{
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFit(cmd, mode, opts)
		},
	}
	switch mode {
	case types.ModeExpand:
		cmd.Use = "expand"
		cmd.Short = "Generate new items until the resume fills the target page count"
		cmd.Long = "Adds generated items to the most relevant sections, one at a time, until the compiled resume reaches the target page count. Items that push it past the target are reverted."
	default:
		cmd.Use = "fit"
		cmd.Short = "Remove the least relevant items until the resume fits the target page count"
		cmd.Long = "Removes the least relevant item (or skill) from the least relevant section, recompiling after every edit, until the resume fits the target page count or nothing more can be removed."
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.sectionsDir, "sections", "s", "", "Directory holding <section>.tex files (required)")
	flags.StringVarP(&opts.jobFile, "job", "j", "", "Job description: JSON job context or plain text")
	flags.StringVarP(&opts.profileFile, "profile", "p", "", "Personal information file (info.yml) for the header and generation")
	flags.IntVarP(&opts.pages, "pages", "n", 0, "Target page count (overrides target_pages)")
	flags.StringVarP(&opts.outDir, "out", "o", "", "Directory for the fitted sections and PDF")
	flags.StringVarP(&opts.template, "template", "t", "", "Main LaTeX template (overrides template)")
	flags.StringVar(&opts.ranker, "ranker", rankerLLM, "Relevance ranker: llm or keyword")
	flags.BoolVar(&opts.normalize, "normalize", false, "Rewrite items into the configured length range before measuring")
	flags.StringVar(&opts.resultFile, "result", "", "Path to write the FittingResult JSON")
	flags.StringVar(&opts.name, "name", "", "Run name used when persisting (defaults to the sections directory name)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Print boxed summaries")

	if err := cmd.MarkFlagRequired("sections"); err != nil {
		panic(fmt.Sprintf("failed to mark sections flag as required: %v", err))
	}
	return cmd
}

func init() {
	rootCmd.AddCommand(newFitCommand(types.ModeReduce))
	rootCmd.AddCommand(newFitCommand(types.ModeExpand))
}

// fittingContext resolves the run context from config and flags.
func fittingContext(job types.JobContext, pages int) (types.FittingContext, error) {
	fc, err := cfg.FittingContext(job)
	if err != nil {
		return fc, err
	}
	if pages > 0 {
		fc.TargetPages = pages
	}
	return fc, nil
}

// runName defaults to the base name of the sections directory.
func runName(name, sectionsDir string) string {
	if name != "" {
		return name
	}
	return filepath.Base(filepath.Clean(sectionsDir))
}

func runFit(cmd *cobra.Command, mode types.Mode, opts *fitOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	out := cmd.OutOrStdout()

	doc, err := rendering.LoadDocument(opts.sectionsDir, nil)
	if err != nil {
		return err
	}
	job, err := loadJob(opts.jobFile)
	if err != nil {
		return err
	}
	log.Debug("loaded job",
		zap.String("title", job.Title),
		zap.String("description", logger.Truncate(job.Description, 80)),
	)
	fc, err := fittingContext(job, opts.pages)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, runtimeOptions{
		ranker:    opts.ranker,
		profile:   opts.profileFile,
		template:  opts.template,
		normalize: opts.normalize,
		generate:  mode == types.ModeExpand,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	printer := observability.NewPrinter(out)
	if opts.verbose {
		printer.PrintJobContext(job)
	}

	_, _ = fmt.Fprintf(out, "Fitting %d sections from %s to %d page(s) (%s)\n",
		len(doc.Kinds()), opts.sectionsDir, fc.TargetPages, mode)

	var res *types.FittingResult
	if mode == types.ModeExpand {
		res, err = rt.controller.ExpandToBudget(ctx, doc, fc)
	} else {
		res, err = rt.controller.FitToBudget(ctx, doc, fc)
	}
	if res == nil {
		return err
	}

	if opts.verbose {
		printer.PrintFittingResult(res)
		printer.PrintHistory(res)
	}
	printSummary(cmd, res)

	// Partial results of failed or cancelled runs are written too.
	if werr := writeResult(opts.resultFile, res); werr != nil && err == nil {
		err = werr
	}
	if res.Status != types.StatusFailed {
		pdf, werr := writeOutputs(context.WithoutCancel(ctx), rt, res, opts.outDir)
		if werr != nil && err == nil {
			err = werr
		}
		if opts.outDir != "" {
			_, _ = fmt.Fprintf(out, "Sections: %s\n", opts.outDir)
		}
		if pdf != "" {
			_, _ = fmt.Fprintf(out, "PDF: %s\n", pdf)
		}
	}
	persistRuns(context.WithoutCancel(ctx), db.NewFittingRun(runName(opts.name, opts.sectionsDir), job, res))
	return err
}

// printSummary writes the one-line outcome of a run.
func printSummary(cmd *cobra.Command, res *types.FittingResult) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Status: %s (%d -> %d pages, target %d, %d edits in %d attempts)\n",
		res.Status, res.InitialPageCount, res.FinalPageCount, res.TargetPages, res.IterationsUsed, res.EditAttempts)
	if len(res.ExhaustedSections) > 0 {
		names := make([]string, len(res.ExhaustedSections))
		for i, k := range res.ExhaustedSections {
			names[i] = string(k)
		}
		_, _ = fmt.Fprintf(out, "Exhausted: %s\n", strings.Join(names, ", "))
	}
}
