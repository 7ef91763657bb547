package ranking

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// KeywordRanker is an offline, deterministic ranker based on job term overlap.
type KeywordRanker struct{}

// NewKeywordRanker creates a KeywordRanker.
func NewKeywordRanker() *KeywordRanker {
	return &KeywordRanker{}
}

// Rank orders items by the number of distinct job terms they mention.
// Ties keep document order.
func (k *KeywordRanker) Rank(_ context.Context, _ sections.Kind, items []sections.Item, job types.JobContext) ([]int, error) {
	terms := job.Terms()
	type scored struct {
		id   int
		hits int
	}
	list := make([]scored, len(items))
	for i, it := range items {
		list[i] = scored{id: it.ID, hits: countTerms(it.Text, terms)}
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].hits > list[j].hits
	})

	order := make([]int, len(list))
	for i, s := range list {
		order[i] = s.id
	}
	return order, nil
}

// Score maps the share of job terms found in the section onto [MinScore, MaxScore].
// Without terms every section is NeutralScore.
func (k *KeywordRanker) Score(_ context.Context, _ sections.Kind, content string, job types.JobContext) (int, error) {
	terms := job.Terms()
	if len(terms) == 0 {
		return NeutralScore, nil
	}
	share := float64(countTerms(content, terms)) / float64(len(terms))
	return ClampScore(MinScore + int(math.Round(share*float64(MaxScore-MinScore)))), nil
}

func countTerms(text string, terms []string) int {
	plain := strings.ToLower(sections.PlainText(text))
	n := 0
	for _, term := range terms {
		if containsTerm(plain, term) {
			n++
		}
	}
	return n
}

// containsTerm reports a match not embedded in a longer alphanumeric word,
// so "go" does not match "google" but "c++" matches "c++,".
func containsTerm(text, term string) bool {
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], term)
		if idx < 0 {
			return false
		}
		at := start + idx
		end := at + len(term)
		if (at == 0 || !isWordByte(text[at-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		start = at + 1
	}
	return false
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c >= 'A' && c <= 'Z'
}
