package scoring

import (
	"context"
	"fmt"
	"log"
	"time"
)

// #region constants

const (
	defaultMaxRetries = 2 // 3 total attempts
	defaultBaseDelay  = 200 * time.Millisecond
	defaultMaxDelay   = 2 * time.Second
)

// #endregion

// #region policy

// RetryPolicy bounds how transient failures are retried.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy retries twice with 200ms, then 400ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
	}
}

// #endregion

// #region retrying

// Retrying wraps a Scorer and retries transient failures with exponential backoff.
type Retrying struct {
	next   Scorer
	policy RetryPolicy
}

// NewRetrying creates a retrying scorer around next.
func NewRetrying(next Scorer, policy RetryPolicy) *Retrying {
	return &Retrying{next: next, policy: policy}
}

// ShouldRetry reports whether a failure on attempt (0-based) gets another try.
func (r *Retrying) ShouldRetry(attempt int, err error) bool {
	if attempt >= r.policy.MaxRetries {
		return false
	}
	return IsTransient(err)
}

// Backoff returns the wait before retry number attempt+1.
func (r *Retrying) Backoff(attempt int) time.Duration {
	d := r.policy.BaseDelay << attempt
	if d <= 0 || (r.policy.MaxDelay > 0 && d > r.policy.MaxDelay) {
		d = r.policy.MaxDelay
	}
	return d
}

// Score calls the wrapped scorer until it succeeds, fails permanently, runs out
// of retries, or ctx is done.
func (r *Retrying) Score(ctx context.Context, features Features) (Prediction, error) {
	for attempt := 0; ; attempt++ {
		p, err := r.next.Score(ctx, features)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return Prediction{}, err
		}
		if !r.ShouldRetry(attempt, err) {
			if IsTransient(err) {
				return Prediction{}, fmt.Errorf("gave up after %d attempts: %w", attempt+1, err)
			}
			return Prediction{}, err
		}

		wait := r.Backoff(attempt)
		log.Printf("scoring: attempt %d failed, retrying in %s: %v", attempt+1, wait, err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Prediction{}, fmt.Errorf("retry wait: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// #endregion
