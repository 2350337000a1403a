package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func testPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestRetryPolicy_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_RetriesTransientFailures(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: flaky", ErrUnavailable)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: still down", ErrRateLimited)
	})

	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected the last error to surface, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxAttempts", calls)
	}
}

func TestRetryPolicy_PermanentFailureStopsImmediately(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: bad text", ErrInvalidInput)
	})

	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected permanent error to surface, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 for a permanent failure", calls)
	}
}

func TestRetryPolicy_ProtocolMismatchNotRetried(t *testing.T) {
	calls := 0
	err := testPolicy().Do(context.Background(), func() error {
		calls++
		return fmt.Errorf("%w: wrong count", ErrProtocolMismatch)
	})

	if !errors.Is(err, ErrProtocolMismatch) {
		t.Fatalf("expected protocol mismatch to surface, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryPolicy_ContextCancelStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := testPolicy().Do(ctx, func() error {
		calls++
		cancel()
		return fmt.Errorf("%w: down", ErrUnavailable)
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("%w: x", ErrRateLimited), true},
		{fmt.Errorf("%w: x", ErrUnavailable), true},
		{fmt.Errorf("%w: x", ErrInvalidInput), false},
		{fmt.Errorf("%w: x", ErrProtocolMismatch), false},
		{errors.New("unclassified"), false},
		{nil, false},
	}

	for _, tt := range tests {
		if got := IsRetryable(tt.err); got != tt.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
