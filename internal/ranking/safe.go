package ranking

import (
	"context"

	"go.uber.org/zap"

	"github.com/jonathan/resume-fitter/internal/sections"
	"github.com/jonathan/resume-fitter/internal/types"
)

// SafeRanker applies the documented fallbacks around a Ranker so callers never see an
// error: a failed or invalid ranking keeps document order, a failed score is NeutralScore.
type SafeRanker struct {
	inner  Ranker
	logger *zap.Logger
}

// Option configures a SafeRanker.
type Option func(*SafeRanker)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(s *SafeRanker) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSafeRanker wraps inner. A nil inner always falls back.
func NewSafeRanker(inner Ranker, opts ...Option) *SafeRanker {
	s := &SafeRanker{inner: inner, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rank returns a valid permutation of item IDs, most relevant first.
func (s *SafeRanker) Rank(ctx context.Context, kind sections.Kind, items []sections.Item, job types.JobContext) []int {
	if len(items) < 2 || s.inner == nil {
		return OriginalOrder(items)
	}
	order, err := s.inner.Rank(ctx, kind, items, job)
	if err == nil {
		err = ValidatePermutation(items, order)
	}
	if err != nil {
		s.logger.Warn("ranking failed, keeping document order",
			zap.String("section", string(kind)),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return OriginalOrder(items)
	}
	return order
}

// Score returns the section score, or NeutralScore when scoring fails.
func (s *SafeRanker) Score(ctx context.Context, kind sections.Kind, content string, job types.JobContext) int {
	if s.inner == nil {
		return NeutralScore
	}
	score, err := s.inner.Score(ctx, kind, content, job)
	if err != nil {
		s.logger.Warn("scoring failed, using neutral score",
			zap.String("section", string(kind)),
			zap.Int("score", NeutralScore),
			zap.Error(err),
		)
		return NeutralScore
	}
	return ClampScore(score)
}
