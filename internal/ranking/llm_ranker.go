package ranking

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/resume-fitter/internal/llm"
	"github.com/jonathan/resume-fitter/internal/prompts"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// LLMRanker asks a language model to judge relevance.
type LLMRanker struct {
	client llm.Client
}

// NewLLMRanker creates a ranker backed by client.
func NewLLMRanker(client llm.Client) *LLMRanker {
	return &LLMRanker{client: client}
}

type rankResponse struct {
	Order []int `json:"order"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Rank asks the model for a 1-based ordering of the numbered items.
func (r *LLMRanker) Rank(ctx context.Context, kind sections.Kind, items []sections.Item, job types.JobContext) ([]int, error) {
	if len(items) < 2 {
		return OriginalOrder(items), nil
	}

	prompt, err := prompts.Render("fitting.json", "rank-items", map[string]string{
		"Section": sectionLabel(kind),
		"Job":     jobText(job),
		"Items":   numberedItems(items),
	})
	if err != nil {
		return nil, &RankingError{Message: "failed to build ranking prompt", Cause: err}
	}

	jsonResp, err := r.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, &RankingError{Message: "LLM generation failed", Cause: err}
	}
	numbers, err := parseOrder(llm.CleanJSONBlock(jsonResp))
	if err != nil {
		return nil, &RankingError{Message: fmt.Sprintf("failed to parse ranking (content: %s)", jsonResp), Cause: err}
	}

	order := make([]int, 0, len(numbers))
	for _, n := range numbers {
		if n < 1 || n > len(items) {
			return nil, &RankingError{Message: fmt.Sprintf("item number %d out of range 1..%d", n, len(items))}
		}
		order = append(order, items[n-1].ID)
	}
	if err := ValidatePermutation(items, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Score asks the model for a 1-10 relevance score of the whole section.
func (r *LLMRanker) Score(ctx context.Context, kind sections.Kind, content string, job types.JobContext) (int, error) {
	prompt, err := prompts.Render("fitting.json", "score-section", map[string]string{
		"Section": sectionLabel(kind),
		"Job":     jobText(job),
		"Content": content,
	})
	if err != nil {
		return 0, &RankingError{Message: "failed to build scoring prompt", Cause: err}
	}

	jsonResp, err := r.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return 0, &RankingError{Message: "LLM generation failed", Cause: err}
	}

	var resp scoreResponse
	if err := json.Unmarshal([]byte(llm.CleanJSONBlock(jsonResp)), &resp); err != nil {
		return 0, &RankingError{Message: fmt.Sprintf("failed to parse score (content: %s)", jsonResp), Cause: err}
	}
	return ClampScore(int(math.Round(resp.Score))), nil
}

// parseOrder accepts {"order": [...]} or a bare array.
func parseOrder(text string) ([]int, error) {
	if strings.HasPrefix(text, "[") {
		var numbers []int
		err := json.Unmarshal([]byte(text), &numbers)
		return numbers, err
	}
	var resp rankResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil {
		return nil, fmt.Errorf("response has no order field")
	}
	return resp.Order, nil
}

func numberedItems(items []sections.Item) string {
	var sb strings.Builder
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, strings.Join(strings.Fields(it.Text), " "))
	}
	return sb.String()
}

func sectionLabel(kind sections.Kind) string {
	return strings.ReplaceAll(string(kind), "_", " ")
}

func jobText(job types.JobContext) string {
	if s := job.Summary(); s != "" {
		return s
	}
	return "Not specified\n"
}
