// SPDX-License-Identifier: MPL-2.0

// Package retry runs an operation a bounded number of times and reports
// exhaustion as a typed error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExhausted is the sentinel error wrapped by ExhaustedError.
	ErrExhausted = errors.New("retry attempts exhausted")
	// ErrInvalidPolicy is returned when a Policy cannot run even one attempt.
	ErrInvalidPolicy = errors.New("invalid retry policy")
)

// MaxDelay caps a single wait between attempts.
const MaxDelay = 5 * time.Minute

type (
	// Policy bounds a retry loop.
	Policy struct {
		// MaxAttempts is the total number of attempts, including the first.
		MaxAttempts int
		// BaseBackoff is the delay before the second attempt. It doubles for
		// each further attempt, up to MaxDelay. Zero retries immediately.
		BaseBackoff time.Duration
		// Notify, if set, is called after every failed attempt (1-based).
		Notify func(attempt int, err error)
	}

	// ExhaustedError is returned when every attempt failed.
	ExhaustedError struct {
		Attempts int
		Last     error
	}
)

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("all %d attempts failed", e.Attempts)
	}
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Last)
}

// Unwrap exposes both the ErrExhausted sentinel and the last attempt's error.
func (e *ExhaustedError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrExhausted}
	}
	return []error{ErrExhausted, e.Last}
}

// Validate reports whether the policy can run.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1 (got %d)", ErrInvalidPolicy, p.MaxAttempts)
	}
	if p.BaseBackoff < 0 {
		return fmt.Errorf("%w: backoff must not be negative (got %s)", ErrInvalidPolicy, p.BaseBackoff)
	}
	return nil
}

// delay returns the wait before the given 1-based attempt.
func (p Policy) delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseBackoff == 0 {
		return 0
	}
	d := min(p.BaseBackoff, MaxDelay)
	for i := 2; i < attempt && d < MaxDelay; i++ {
		d *= 2
	}
	return min(d, MaxDelay)
}

// Do runs op until it succeeds or the policy's attempts are used up. Attempts
// are numbered from 1. ctx is checked between attempts so a cancelled caller
// never starts another one. On exhaustion the returned error is an
// *ExhaustedError carrying the last failure.
func Do(ctx context.Context, p Policy, op func(attempt int) error) error {
	if err := p.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
			if err := sleep(ctx, p.delay(attempt)); err != nil {
				return fmt.Errorf("retry aborted: %w", err)
			}
		}

		err := op(attempt)
		if err == nil {
			return nil
		}
		lastErr = err
		if p.Notify != nil {
			p.Notify(attempt, err)
		}
	}

	return &ExhaustedError{Attempts: p.MaxAttempts, Last: lastErr}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
