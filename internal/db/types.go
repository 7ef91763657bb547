package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// FittingRun is a stored fitting run.
type FittingRun struct {
	ID                uuid.UUID               `json:"id"`
	Name              string                  `json:"name"`
	Mode              types.Mode              `json:"mode"`
	Status            types.Status            `json:"status"`
	TargetPages       int                     `json:"target_pages"`
	InitialPages      int                     `json:"initial_pages"`
	FinalPages        int                     `json:"final_pages"`
	BestPages         int                     `json:"best_pages"`
	IterationsUsed    int                     `json:"iterations_used"`
	EditAttempts      int                     `json:"edit_attempts"`
	ExhaustedSections []sections.Kind         `json:"exhausted_sections"`
	Job               *types.JobContext       `json:"job,omitempty"`
	Document          *sections.Document      `json:"document,omitempty"`
	History           []types.IterationRecord `json:"history,omitempty"`
	StartedAt         time.Time               `json:"started_at"`
	CompletedAt       time.Time               `json:"completed_at"`
	CreatedAt         time.Time               `json:"created_at"`
}

// NewFittingRun converts a result into its stored form.
func NewFittingRun(name string, job types.JobContext, res *types.FittingResult) *FittingRun {
	return &FittingRun{
		ID:                res.RunID,
		Name:              name,
		Mode:              res.Mode,
		Status:            res.Status,
		TargetPages:       res.TargetPages,
		InitialPages:      res.InitialPageCount,
		FinalPages:        res.FinalPageCount,
		BestPages:         res.BestPageCount,
		IterationsUsed:    res.IterationsUsed,
		EditAttempts:      res.EditAttempts,
		ExhaustedSections: append([]sections.Kind(nil), res.ExhaustedSections...),
		Job:               &job,
		Document:          res.Document,
		History:           append([]types.IterationRecord(nil), res.History...),
		StartedAt:         res.StartedAt,
		CompletedAt:       res.CompletedAt,
	}
}

func kindStrings(kinds []sections.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func stringKinds(names []string) []sections.Kind {
	out := make([]sections.Kind, len(names))
	for i, n := range names {
		out[i] = sections.Kind(n)
	}
	return out
}
