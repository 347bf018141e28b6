package service

import (
	"context"
	"time"
)

// RetryPolicy parametriza el combinador de reintentos con backoff.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy cubre fallas transitorias de red: 3 intentos en total.
var DefaultRetryPolicy = RetryPolicy{
	Attempts:  3,
	BaseDelay: 100 * time.Millisecond,
	MaxDelay:  2 * time.Second,
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 100 * time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// withRetry ejecuta fn y reintenta solo cuando classify reporta la falla como
// transitoria. El delay duplica en cada intento hasta MaxDelay. Devuelve el
// ultimo error cuando se agota el presupuesto.
func withRetry(ctx context.Context, policy RetryPolicy, classify func(error) bool, fn func(context.Context) error) error {
	policy = policy.normalized()

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr) {
			return lastErr
		}
		if attempt == policy.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}
