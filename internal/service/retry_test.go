package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastPolicy(3), isTransient, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastPolicy(3), isTransient, func(context.Context) error {
		calls++
		if calls < 3 {
			return transientStore("op", errors.New("timeout"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnPermanent(t *testing.T) {
	calls := 0
	permanent := permanentStore("op", errors.New("not found"))
	err := withRetry(context.Background(), fastPolicy(3), isTransient, func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("expected the permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestWithRetryReturnsLastErrorOnExhaustion(t *testing.T) {
	calls := 0
	last := transientStore("op", errors.New("still down"))
	err := withRetry(context.Background(), fastPolicy(2), isTransient, func(context.Context) error {
		calls++
		return last
	})
	if !errors.Is(err, last) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, RetryPolicy{Attempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}, isTransient, func(context.Context) error {
		calls++
		cancel()
		return transientStore("op", errors.New("timeout"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestIsTransientClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"store transient", transientStore("op", errors.New("reset")), true},
		{"store permanent", permanentStore("op", errors.New("bad")), false},
		{"deadline", context.DeadlineExceeded, true},
		{"plain", errors.New("whatever"), false},
	}
	for _, tc := range cases {
		if got := isTransient(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
