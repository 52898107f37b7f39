// Package backoff runs an operation with capped exponential retries.
package backoff

import (
	"context"
	"errors"
	"time"
)

// Policy describes the retry schedule.
type Policy struct {
	Initial     time.Duration // first wait (ex: 2s, doubles after each failure)
	Max         time.Duration // cap for a single wait (ex: 10s)
	MaxAttempts int           // 0 = retry until ctx is done
}

// Notify is called after a failed attempt, before waiting.
type Notify func(attempt int, wait time.Duration, err error)

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Next returns the wait that follows d.
func (p Policy) Next(d time.Duration) time.Duration {
	d *= 2
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	return d
}

// Retry calls fn until it succeeds, fails permanently, runs out of attempts
// or ctx is done. It returns the number of attempts made and the last error
// (unwrapped from Permanent).
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error, notify Notify) (int, error) {
	attempt := 0
	wait := p.Initial
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}

	for {
		attempt++

		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return attempt, perm.err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return attempt, err
		}
		if ctx.Err() != nil {
			return attempt, err
		}

		if notify != nil {
			notify(attempt, wait, err)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, err
		case <-timer.C:
		}

		wait = p.Next(wait)
	}
}

// TimeLeft returns the remaining time before the ctx deadline, or 0.
func TimeLeft(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return time.Until(deadline)
}
