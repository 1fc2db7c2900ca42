// Package retry holds the backoff policy applied to external model calls.
package retry

import (
	"context"
	"time"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // retry attempts after the first failure
}

// DefaultPolicy returns the default model-call policy (2s initial,
// exponential growth capped at 30s, 2 retries).
func DefaultPolicy() Policy {
	return Policy{Initial: 2 * time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NewPolicy builds a policy from raw config; zero/invalid values fall back
// to defaults.
func NewPolicy(initial time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if initial > 0 {
		p.Initial = initial
	}
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if p.Initial > p.Max {
		p.Max = p.Initial
	}
	return p
}

// Delay returns the exponential backoff delay for the given retry attempt
// number (1-based: first retry => 1), capped at Max.
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	d := p.Initial * (1 << (retryCount - 1))
	if d > p.Max {
		return p.Max
	}
	return d
}

// Do runs op, retrying on error up to MaxRetries times with backoff.
// Context cancellation stops both the waiting and the retrying.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay(attempt + 1)):
		}
	}
}
