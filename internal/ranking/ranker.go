// Package ranking provides relevance ranking of section items and relevance scoring of
// whole sections against a job context.
package ranking

import (
	"context"
	"fmt"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// Score bounds. Lower scores mark less relevant sections, which are reduced first.
const (
	MinScore     = 1
	MaxScore     = 10
	NeutralScore = 5
)

// Ranker orders a section's items and scores whole sections against a job.
type Ranker interface {
	// Rank returns the IDs of items, most relevant first. The result must be a permutation.
	Rank(ctx context.Context, kind sections.Kind, items []sections.Item, job types.JobContext) ([]int, error)
	// Score rates a whole section in [MinScore, MaxScore].
	Score(ctx context.Context, kind sections.Kind, content string, job types.JobContext) (int, error)
}

// RankingError reports a failed or invalid ranking call.
type RankingError struct {
	Message string
	Cause   error
}

func (e *RankingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ranking error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("ranking error: %s", e.Message)
}

func (e *RankingError) Unwrap() error {
	return e.Cause
}

// OriginalOrder returns the item IDs in document order.
func OriginalOrder(items []sections.Item) []int {
	ids := make([]int, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// ValidatePermutation checks that order names every item ID exactly once.
func ValidatePermutation(items []sections.Item, order []int) error {
	if len(order) != len(items) {
		return &RankingError{Message: fmt.Sprintf("ranking has %d entries for %d items", len(order), len(items))}
	}
	known := make(map[int]bool, len(items))
	for _, it := range items {
		known[it.ID] = true
	}
	seen := make(map[int]bool, len(order))
	for _, id := range order {
		if !known[id] {
			return &RankingError{Message: fmt.Sprintf("ranking names unknown item %d", id)}
		}
		if seen[id] {
			return &RankingError{Message: fmt.Sprintf("ranking names item %d twice", id)}
		}
		seen[id] = true
	}
	return nil
}

// ClampScore forces n into [MinScore, MaxScore].
func ClampScore(n int) int {
	if n < MinScore {
		return MinScore
	}
	if n > MaxScore {
		return MaxScore
	}
	return n
}
