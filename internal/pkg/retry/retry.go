package retry

import (
	"context"
	"errors"
	"time"
)

// Policy defines a bounded retry with a fixed delay between attempts.
// It must only wrap idempotent operations, never partial multi-step mutations.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Default matches the payment gateway reconciliation policy: three attempts,
// one second apart.
var Default = Policy{Attempts: 3, Delay: time.Second}

// permanentError marks an outcome that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so Do stops immediately instead of retrying.
// Do unwraps it before returning.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err}
}

// Do runs op until it succeeds, attempts are exhausted, ctx is done, or
// op returns a Permanent error. The last error is returned when all
// attempts fail.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = op(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
