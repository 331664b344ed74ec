package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultBaseBackoff is the delay before the first retry.
const DefaultBaseBackoff = 500 * time.Millisecond

// Backoff is an exponential retry schedule: Base, 2*Base, 4*Base, ...
type Backoff struct {
	// Retries is the number of attempts after the first.
	Retries int
	// Base is the first delay (DefaultBaseBackoff when zero).
	Base time.Duration
}

func (b Backoff) delay(retry int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = DefaultBaseBackoff
	}
	return base << (retry - 1)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry runs attempt until it succeeds, returns a Permanent error, the
// schedule is exhausted or ctx is done. It returns the number of attempts
// made and the last error.
func Retry(ctx context.Context, b Backoff, attempt func(context.Context) error) (int, error) {
	var last error
	for i := 0; i <= b.Retries; i++ {
		if i > 0 {
			t := time.NewTimer(b.delay(i))
			select {
			case <-ctx.Done():
				t.Stop()
				return i, fmt.Errorf("canceled during backoff: %w", ctx.Err())
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return i, fmt.Errorf("canceled: %w", err)
		}

		last = attempt(ctx)
		if last == nil {
			return i + 1, nil
		}
		if IsPermanent(last) {
			return i + 1, last
		}
	}
	return b.Retries + 1, fmt.Errorf("failed after %d attempts: %w", b.Retries+1, last)
}
