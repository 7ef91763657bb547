package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-fitter/internal/db"
	"github.com/jonathan/resume-fitter/internal/fitting"
	"github.com/jonathan/resume-fitter/internal/observability"
	"github.com/jonathan/resume-fitter/internal/rendering"
	"github.com/jonathan/resume-fitter/internal/schemas"
	"github.com/jonathan/resume-fitter/internal/types"
)

var batchCmd = &cobra.Command{
	Use:   "fit-batch",
	Short: "Fit several resumes concurrently from a manifest",
	Long:  "Reads a YAML manifest of independent jobs (sections directory, job file, optional output directory, mode and page target) and fits them concurrently.",
	RunE:  runBatch,
}

var (
	batchManifestFile string
	batchRanker       string
	batchProfileFile  string
	batchTemplate     string
	batchResultDir    string
	batchVerbose      bool
)

func init() {
	batchCmd.Flags().StringVarP(&batchManifestFile, "manifest", "m", "", "Path to the batch manifest YAML (required)")
	batchCmd.Flags().StringVar(&batchRanker, "ranker", rankerLLM, "Relevance ranker: llm or keyword")
	batchCmd.Flags().StringVarP(&batchProfileFile, "profile", "p", "", "Personal information file (info.yml)")
	batchCmd.Flags().StringVarP(&batchTemplate, "template", "t", "", "Main LaTeX template (overrides template)")
	batchCmd.Flags().StringVar(&batchResultDir, "results", "", "Directory for one <name>.json FittingResult per job")
	batchCmd.Flags().BoolVarP(&batchVerbose, "verbose", "v", false, "Print the batch summary box")

	if err := batchCmd.MarkFlagRequired("manifest"); err != nil {
		panic(fmt.Sprintf("failed to mark manifest flag as required: %v", err))
	}

	rootCmd.AddCommand(batchCmd)
}

// manifest is the fit-batch input file.
type manifest struct {
	Parallelism int           `yaml:"parallelism" json:"parallelism,omitempty"`
	Jobs        []manifestJob `yaml:"jobs" json:"jobs"`
}

type manifestJob struct {
	Name     string `yaml:"name" json:"name"`
	Sections string `yaml:"sections" json:"sections"`
	Job      string `yaml:"job" json:"job"`
	Out      string `yaml:"out" json:"out,omitempty"`
	Mode     string `yaml:"mode" json:"mode,omitempty"`
	Pages    int    `yaml:"pages" json:"pages,omitempty"`
}

// loadManifest reads and validates a manifest. Relative paths are resolved against
// the manifest's directory.
func loadManifest(path string) (*manifest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(content, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest YAML: %w", err)
	}
	if err := schemas.ValidateValue(schemas.Manifest, m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}

	seen := make(map[string]bool, len(m.Jobs))
	base := filepath.Dir(path)
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if seen[j.Name] {
			return nil, fmt.Errorf("invalid manifest %s: duplicate job name %q", path, j.Name)
		}
		seen[j.Name] = true
		j.Sections = resolvePath(base, j.Sections)
		j.Job = resolvePath(base, j.Job)
		j.Out = resolvePath(base, j.Out)
	}
	return &m, nil
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// batchJobs loads the documents and contexts of every manifest entry.
func batchJobs(m *manifest) ([]fitting.Job, []types.JobContext, error) {
	jobs := make([]fitting.Job, 0, len(m.Jobs))
	contexts := make([]types.JobContext, 0, len(m.Jobs))
	for _, mj := range m.Jobs {
		doc, err := rendering.LoadDocument(mj.Sections, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("job %s: %w", mj.Name, err)
		}
		job, err := loadJob(mj.Job)
		if err != nil {
			return nil, nil, fmt.Errorf("job %s: %w", mj.Name, err)
		}
		fc, err := fittingContext(job, mj.Pages)
		if err != nil {
			return nil, nil, fmt.Errorf("job %s: %w", mj.Name, err)
		}
		jobs = append(jobs, fitting.Job{Name: mj.Name, Document: doc, Context: fc, Mode: types.Mode(mj.Mode)})
		contexts = append(contexts, job)
	}
	return jobs, contexts, nil
}

func hasExpandJob(m *manifest) bool {
	for _, j := range m.Jobs {
		if types.Mode(j.Mode) == types.ModeExpand {
			return true
		}
	}
	return false
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	out := cmd.OutOrStdout()

	m, err := loadManifest(batchManifestFile)
	if err != nil {
		return err
	}
	jobs, contexts, err := batchJobs(m)
	if err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, runtimeOptions{
		ranker:   batchRanker,
		profile:  batchProfileFile,
		template: batchTemplate,
		generate: hasExpandJob(m),
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	limit := cfg.Parallelism
	if m.Parallelism > 0 {
		limit = m.Parallelism
	}
	_, _ = fmt.Fprintf(out, "Running %d jobs (parallelism %d)\n", len(jobs), limit)

	results := fitting.FitAll(ctx, rt.controller, jobs, limit)

	var runs []*db.FittingRun
	failed := 0
	for i, br := range results {
		if br.Err != nil {
			failed++
			log.Warn("batch job failed", zap.String("job", br.Name), zap.Error(br.Err))
		}
		if br.Result == nil {
			continue
		}
		if batchResultDir != "" {
			if err := writeResult(filepath.Join(batchResultDir, br.Name+".json"), br.Result); err != nil {
				log.Warn("failed to write result", zap.String("job", br.Name), zap.Error(err))
			}
		}
		if br.Result.Status != types.StatusFailed {
			if _, err := writeOutputs(context.WithoutCancel(ctx), rt, br.Result, m.Jobs[i].Out); err != nil {
				log.Warn("failed to write outputs", zap.String("job", br.Name), zap.Error(err))
			}
		}
		runs = append(runs, db.NewFittingRun(br.Name, contexts[i], br.Result))
	}
	persistRuns(context.WithoutCancel(ctx), runs...)

	if batchVerbose {
		observability.NewPrinter(out).PrintBatchResults(results)
	} else {
		for _, br := range results {
			if br.Result != nil {
				_, _ = fmt.Fprintf(out, "%s: %s (%d -> %d pages)\n", br.Name, br.Result.Status, br.Result.InitialPageCount, br.Result.FinalPageCount)
			} else {
				_, _ = fmt.Fprintf(out, "%s: %v\n", br.Name, br.Err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}
