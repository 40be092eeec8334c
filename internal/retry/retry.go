// Package retry provides a bounded retry combinator with configurable
// backoff, shared by session acquisition and status polling.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when every attempt completed without success
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a retry loop
type Policy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	BackoffFactor float64 // 1.0 = fixed interval
}

// Do runs op up to MaxAttempts times, sleeping between attempts. op returns
// done=true to stop successfully; a non-nil error aborts immediately.
// Returns ErrExhausted when no attempt reported done, or ctx.Err() when the
// context is cancelled while waiting.
func Do(ctx context.Context, p Policy, op func(attempt int) (bool, error)) error {
	if p.MaxAttempts <= 0 {
		return ErrExhausted
	}

	delay := p.InitialDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		done, err := op(attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if p.BackoffFactor > 1 {
			delay = time.Duration(float64(delay) * p.BackoffFactor)
		}
	}

	return ErrExhausted
}
