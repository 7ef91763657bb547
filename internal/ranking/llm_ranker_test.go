package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-fitter/internal/llm"
	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return `{"score": 5}`, nil
}

func (m *MockLLMClient) GetModel(llm.ModelTier) string { return "mock-model" }
func (m *MockLLMClient) Close() error                  { return nil }

func TestLLMRanker_Rank(t *testing.T) {
	var gotPrompt string
	var gotTier llm.ModelTier
	client := &MockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			gotPrompt, gotTier = prompt, tier
			return "```json\n{\"order\": [2, 3, 1]}\n```", nil
		},
	}
	items := []sections.Item{
		{ID: 4, Text: `\item Organized the book club`},
		{ID: 7, Text: "\\item Built Go services\n    on Kubernetes"},
		{ID: 9, Text: `\item Tuned PostgreSQL`},
	}

	order, err := NewLLMRanker(client).Rank(context.Background(), sections.WorkExperience, items, types.JobContext{Title: "Backend Engineer"})
	require.NoError(t, err)
	assert.Equal(t, []int{7, 9, 4}, order)
	assert.Equal(t, llm.TierLite, gotTier)
	assert.Contains(t, gotPrompt, "work experience section")
	assert.Contains(t, gotPrompt, "2. \\item Built Go services on Kubernetes")
	assert.Contains(t, gotPrompt, "Role: Backend Engineer")
}

func TestLLMRanker_RankBareArray(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			return `[2, 1]`, nil
		},
	}
	order, err := NewLLMRanker(client).Rank(context.Background(), sections.Projects, testItems()[:2], types.JobContext{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, order)
}

func TestLLMRanker_RankErrors(t *testing.T) {
	tests := []struct {
		name string
		resp string
		err  error
	}{
		{"llm failure", "", errors.New("quota exceeded")},
		{"not json", "1, 3, 2", nil},
		{"missing field", `{"ranking": [1, 2, 3]}`, nil},
		{"out of range", `{"order": [1, 2, 5]}`, nil},
		{"partial", `{"order": [3, 1]}`, nil},
		{"duplicate", `{"order": [1, 1, 2]}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
					return tt.resp, tt.err
				},
			}
			_, err := NewLLMRanker(client).Rank(context.Background(), sections.Projects, testItems(), types.JobContext{})
			var rankErr *RankingError
			assert.ErrorAs(t, err, &rankErr)
		})
	}
}

func TestLLMRanker_RankSingleItemSkipsCall(t *testing.T) {
	client := &MockLLMClient{
		GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
			t.Fatal("no call expected for a single item")
			return "", nil
		},
	}
	order, err := NewLLMRanker(client).Rank(context.Background(), sections.Projects, testItems()[:1], types.JobContext{})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, order)
}

func TestLLMRanker_Score(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		want    int
		wantErr bool
	}{
		{"integer", `{"score": 3}`, 3, false},
		{"float rounds", `{"score": 6.6}`, 7, false},
		{"clamped high", `{"score": 14}`, 10, false},
		{"clamped low", `{"score": 0}`, 1, false},
		{"with preamble", "Score:\n{\"score\": 8}", 8, false},
		{"invalid", "eight", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockLLMClient{
				GenerateJSONFunc: func(context.Context, string, llm.ModelTier) (string, error) {
					return tt.resp, nil
				},
			}
			got, err := NewLLMRanker(client).Score(context.Background(), sections.Projects, `\item A`, types.JobContext{})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
