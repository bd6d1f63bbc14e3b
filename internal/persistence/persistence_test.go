package persistence

import (
	"context"
	"errors"
	"testing"
)

func TestWithRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryReappliesOnStaleVersion(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return ErrStaleVersion
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryGivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		return ErrStaleVersion
	})
	if !errors.Is(err, ErrStaleVersion) {
		t.Fatalf("expected ErrStaleVersion, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryPassesDomainErrorsThrough(t *testing.T) {
	sentinel := errors.New("insufficient_balance")
	calls := 0
	err := WithRetry(context.Background(), func(context.Context) error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("domain errors must not be retried, got %d calls", calls)
	}
}

func TestWithRetryHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithRetry(ctx, func(context.Context) error {
		calls++
		cancel()
		return ErrStaleVersion
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}
