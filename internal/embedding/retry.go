package embedding

import (
	"context"
	"time"
)

// RetryPolicy retries transient provider failures with exponential backoff.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3
	MaxAttempts int

	// BaseDelay is the wait before the first retry; each subsequent wait
	// doubles. Default: 2 seconds
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts. Default: 10 seconds
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the policy used for provider calls:
// 3 attempts with delays of 2s then 4s, capped at 10s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs fn until it succeeds, fails permanently, or attempts run out.
// Only errors for which IsRetryable returns true are retried; the last
// error is returned unchanged so callers can still classify it.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	delay := p.BaseDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return err
}
