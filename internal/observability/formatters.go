// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/resume-fitter/internal/fitting"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
	// maxHistoryRows bounds the history table
	maxHistoryRows = 20
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes with a trailing ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintJobContext outputs the relevance signal a run ranks against.
func (p *Printer) PrintJobContext(job types.JobContext) {
	var sb strings.Builder
	if job.Company != "" {
		sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	}
	if job.Title != "" {
		sb.WriteString(fmt.Sprintf("Role:     %s\n", job.Title))
	}

	terms := job.Terms()
	if len(terms) > 0 {
		sb.WriteString("\nTerms:\n")
		count := min(len(terms), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", terms[i]))
		}
		if len(terms) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(terms)-maxItemsToShow))
		}
	}
	if sb.Len() == 0 {
		sb.WriteString("(no job details)")
	}

	p.printBox("JOB CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFittingResult outputs the summary of a run.
func (p *Printer) PrintFittingResult(res *types.FittingResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:        %s\n", res.RunID))
	sb.WriteString(fmt.Sprintf("Mode:       %s\n", res.Mode))
	sb.WriteString(fmt.Sprintf("Status:     %s %s\n", statusIcon(res.Status), res.Status))
	sb.WriteString(fmt.Sprintf("Pages:      %d → %d (target %d, best %d)\n",
		res.InitialPageCount, res.FinalPageCount, res.TargetPages, res.BestPageCount))
	sb.WriteString(fmt.Sprintf("Edits:      %d kept / %d attempts\n", res.IterationsUsed, res.EditAttempts))
	if len(res.ExhaustedSections) > 0 {
		sb.WriteString(fmt.Sprintf("Exhausted:  %s\n", joinKinds(res.ExhaustedSections)))
	}
	if !res.StartedAt.IsZero() && !res.CompletedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:   %s\n", res.CompletedAt.Sub(res.StartedAt).Round(time.Millisecond)))
	}

	p.printBox("FITTING RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs one row per edit attempt.
func (p *Printer) PrintHistory(res *types.FittingResult) {
	if res == nil || len(res.History) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-3s %-17s %5s %7s %7s\n", "#", "section", "score", "units", "pages"))

	count := min(len(res.History), maxHistoryRows)
	for i := 0; i < count; i++ {
		h := res.History[i]
		sb.WriteString(fmt.Sprintf("%-3d %-17s %5d %3d→%-3d %3d→%-3d\n",
			h.Attempt, h.Section, h.Score, h.UnitsBefore, h.UnitsAfter, h.PagesBefore, h.PagesAfter))
		sb.WriteString(fmt.Sprintf("    %s %s\n", outcomeIcon(h.Outcome), h.Outcome))
	}
	if len(res.History) > maxHistoryRows {
		sb.WriteString(fmt.Sprintf("... and %d more attempts\n", len(res.History)-maxHistoryRows))
	}

	p.printBox("EDIT HISTORY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchResults outputs one line per batch job.
func (p *Printer) PrintBatchResults(results []fitting.BatchResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			sb.WriteString(fmt.Sprintf("❌ %s: %v\n", r.Name, r.Err))
		case r.Result != nil:
			sb.WriteString(fmt.Sprintf("%s %s: %s, %d → %d pages\n", statusIcon(r.Result.Status), r.Name,
				r.Result.Status, r.Result.InitialPageCount, r.Result.FinalPageCount))
		}
	}
	sb.WriteString(fmt.Sprintf("\n%d jobs, %d failed", len(results), failed))

	p.printBox("BATCH RESULTS", sb.String())
}

// PrintSectionCheck outputs the parse summary of a section file.
func (p *Printer) PrintSectionCheck(s sections.Section) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Section:    %s\n", s.Kind))
	sb.WriteString(fmt.Sprintf("Unit:       %s\n", s.Behavior.Unit))
	sb.WriteString(fmt.Sprintf("Items:      %d\n", s.ItemCount()))
	sb.WriteString(fmt.Sprintf("Units:      %d (%d removable)\n", sections.Units(s), sections.RemovableUnits(s)))

	items := s.Items()
	if len(items) > 0 {
		sb.WriteString("\n")
		count := min(len(items), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("• %s\n", sections.PlainText(items[i].Text)))
		}
		if len(items) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("... and %d more items\n", len(items)-maxItemsToShow))
		}
	}

	p.printBox("SECTION CHECK", strings.TrimSuffix(sb.String(), "\n"))
}

func statusIcon(s types.Status) string {
	switch s {
	case types.StatusConverged:
		return "✅"
	case types.StatusExhausted:
		return "⚠"
	default:
		return "❌"
	}
}

func outcomeIcon(o types.Outcome) string {
	switch o {
	case types.OutcomeProgress:
		return "✓"
	case types.OutcomeStagnant, types.OutcomeNothingToReduce:
		return "·"
	default:
		return "✗"
	}
}

func joinKinds(kinds []sections.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
