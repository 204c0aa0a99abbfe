// Package retry provides the single retry policy shared by the crawl and
// parse stages: a bounded number of attempts with a fixed inter-attempt
// delay and an explicit classification of retryable errors.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrAttemptsExhausted is returned (wrapping the last attempt error) when
// every attempt has failed.
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy configures retry behavior. The zero value is not usable; use
// Fixed or fill every field.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// classifier retries every error.
	Retryable func(error) bool
}

// Fixed returns a policy with the given attempt budget and delay that
// retries every error.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, Delay: delay}
}

// Do runs fn until it succeeds, the attempt budget is spent, the error is
// classified terminal, or ctx is done. The last error is wrapped in
// ErrAttemptsExhausted on budget exhaustion and returned as-is when
// classified terminal.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var last error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(last) {
			return last
		}
		if attempt == p.MaxAttempts {
			break
		}

		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Join(ErrAttemptsExhausted, last)
}
