// Package types provides type definitions shared by the fitting engine and its front ends.
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/resume-fitter/internal/sections"
)

// DefaultMaxCycles bounds edit attempts per reducible section.
const DefaultMaxCycles = 10

// DefaultReducibleSections is the reduction priority used when none is given:
// least structurally sensitive first. Education is excluded by policy.
var DefaultReducibleSections = []sections.Kind{
	sections.TechnicalSkills,
	sections.Projects,
	sections.WorkExperience,
}

// FittingContext is immutable for the duration of a fitting run.
type FittingContext struct {
	TargetPages int        `json:"target_pages" validate:"min=1"`
	Job         JobContext `json:"job"`
	// ReducibleSections is ordered: earlier entries win score ties.
	ReducibleSections  []sections.Kind `json:"reducible_sections" validate:"unique,dive,required"`
	ExpandableSections []sections.Kind `json:"expandable_sections,omitempty" validate:"unique,dive,required"`
	MaxCycles          int             `json:"max_cycles,omitempty" validate:"min=0"`
}

// Validate checks the struct tags of the context.
func (c FittingContext) Validate() error {
	return validator.New().Struct(c)
}

// WithDefaults fills zero fields with defaults.
func (c FittingContext) WithDefaults() FittingContext {
	if c.MaxCycles == 0 {
		c.MaxCycles = DefaultMaxCycles
	}
	if c.ReducibleSections == nil {
		c.ReducibleSections = append([]sections.Kind(nil), DefaultReducibleSections...)
	}
	if c.ExpandableSections == nil {
		c.ExpandableSections = append([]sections.Kind(nil), sections.AllKinds...)
	}
	return c
}

// Status is the terminal state of a fitting run.
type Status string

const (
	StatusConverged Status = "converged"
	StatusExhausted Status = "exhausted"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Mode tells whether a run shrinks or grows the document.
type Mode string

const (
	ModeReduce Mode = "reduce"
	ModeExpand Mode = "expand"
)

// Outcome classifies one edit attempt.
type Outcome string

const (
	OutcomeProgress         Outcome = "progress"
	OutcomeStagnant         Outcome = "stagnant"
	OutcomeNothingToReduce  Outcome = "nothing_to_reduce"
	OutcomeOvershoot        Outcome = "overshoot"
	OutcomeGenerationFailed Outcome = "generation_failed"
)

// IterationRecord is one entry of the run history.
type IterationRecord struct {
	Attempt     int           `json:"attempt"`
	Section     sections.Kind `json:"section"`
	Score       int           `json:"score"`
	UnitsBefore int           `json:"units_before"`
	UnitsAfter  int           `json:"units_after"`
	PagesBefore int           `json:"pages_before"`
	PagesAfter  int           `json:"pages_after"`
	Outcome     Outcome       `json:"outcome"`
}

// FittingResult is the value returned by a fitting run. Exhausted is a normal result,
// so callers must check Status.
type FittingResult struct {
	RunID             uuid.UUID          `json:"run_id"`
	Mode              Mode               `json:"mode"`
	Status            Status             `json:"status"`
	Document          *sections.Document `json:"document"`
	TargetPages       int                `json:"target_pages"`
	InitialPageCount  int                `json:"initial_page_count"`
	FinalPageCount    int                `json:"final_page_count"`
	BestPageCount     int                `json:"best_page_count"`
	IterationsUsed    int                `json:"iterations_used"`
	EditAttempts      int                `json:"edit_attempts"`
	ExhaustedSections []sections.Kind    `json:"exhausted_sections"`
	History           []IterationRecord  `json:"history"`
	StartedAt         time.Time          `json:"started_at"`
	CompletedAt       time.Time          `json:"completed_at"`
}

// Converged reports whether the run met its budget.
func (r *FittingResult) Converged() bool {
	return r != nil && r.Status == StatusConverged
}
