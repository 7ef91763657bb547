package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds the retries of a single LLM call.
type RetryPolicy struct {
	Attempts int
	MinWait  time.Duration
	MaxWait  time.Duration
}

// DefaultRetryPolicy makes three attempts with random exponential waits between 1s and 60s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, MinWait: time.Second, MaxWait: time.Minute}
}

// wait is swapped in tests.
var wait = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoff returns a random duration in [MinWait, min(MaxWait, MinWait*2^attempt)].
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.MinWait <= 0 {
		return 0
	}
	upper := p.MinWait
	for i := 0; i < attempt && upper < p.MaxWait; i++ {
		upper *= 2
	}
	if p.MaxWait > 0 && upper > p.MaxWait {
		upper = p.MaxWait
	}
	if upper <= p.MinWait {
		return p.MinWait
	}
	return p.MinWait + time.Duration(rand.Int64N(int64(upper-p.MinWait)+1))
}

type retryingClient struct {
	Client
	policy RetryPolicy
	logger *zap.Logger
}

// WithRetry wraps c so GenerateContent and GenerateJSON are retried per policy.
// Context cancellation is never retried.
func WithRetry(c Client, policy RetryPolicy, logger *zap.Logger) Client {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &retryingClient{Client: c, policy: policy, logger: logger}
}

func (r *retryingClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, "generate_content", tier, func() (string, error) {
		return r.Client.GenerateContent(ctx, prompt, tier)
	})
}

func (r *retryingClient) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	return r.do(ctx, "generate_json", tier, func() (string, error) {
		return r.Client.GenerateJSON(ctx, prompt, tier)
	})
}

func (r *retryingClient) do(ctx context.Context, op string, tier ModelTier, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < r.policy.Attempts; attempt++ {
		if attempt > 0 {
			d := r.policy.backoff(attempt)
			r.logger.Warn("retrying llm call",
				zap.String("op", op),
				zap.String("tier", string(tier)),
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", d),
				zap.Error(lastErr),
			)
			if err := wait(ctx, d); err != nil {
				return "", err
			}
		}
		out, err := call()
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}
