package fitting

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// Job is one document of a batch.
type Job struct {
	Name     string
	Document *sections.Document
	Context  types.FittingContext
	Mode     types.Mode
}

// BatchResult pairs a job with its outcome. Results keep the order of the jobs.
type BatchResult struct {
	Name   string
	Result *types.FittingResult
	Err    error
}

// FitAll runs independent jobs concurrently with at most limit in flight (unbounded
// when limit <= 0). A failing job does not cancel the others; its error is reported
// in its BatchResult.
func FitAll(ctx context.Context, c *Controller, jobs []Job, limit int) []BatchResult {
	results := make([]BatchResult, len(jobs))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = runJob(ctx, c, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func runJob(ctx context.Context, c *Controller, job Job) BatchResult {
	br := BatchResult{Name: job.Name}
	switch job.Mode {
	case types.ModeReduce, "":
		br.Result, br.Err = c.FitToBudget(ctx, job.Document, job.Context)
	case types.ModeExpand:
		br.Result, br.Err = c.ExpandToBudget(ctx, job.Document, job.Context)
	default:
		br.Err = &ContextError{Message: fmt.Sprintf("unknown mode %q", job.Mode)}
	}
	return br
}
