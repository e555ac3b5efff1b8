// Package retry implements the bounded retry loop used by the generation
// clients. Backoff is exponential with jitter, and rate-limit errors stretch
// the delay further so a throttled upstream gets room to recover.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

// BackoffFunc returns the delay to wait before the given attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// Exponential doubles the base delay per attempt with ±10% jitter.
func Exponential(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := float64(base) * math.Pow(2, float64(attempt-1))
		jitter := 1 + (rand.Float64()*0.2 - 0.1)
		delay := time.Duration(d * jitter)
		if delay < base {
			delay = base
		}
		return delay
	}
}

// Linear grows the delay by one base unit per attempt.
func Linear(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base * time.Duration(attempt)
	}
}

// Policy drives Do. The zero value is not usable; construct with at least
// MaxAttempts and Backoff set.
type Policy struct {
	MaxAttempts int
	Backoff     BackoffFunc

	// RateLimitScale multiplies the backoff delay when the previous attempt
	// failed with a rate-limit error. Defaults to 2.
	RateLimitScale float64

	// Sleep is overridable in tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, attempts are exhausted, or the context is
// done. The returned error wraps the last failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	scale := p.RateLimitScale
	if scale <= 0 {
		scale = 2
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts {
			break
		}

		delay := time.Duration(0)
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if IsRateLimited(lastErr) {
			delay = time.Duration(float64(delay) * scale)
		}
		if delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}
	}

	return &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// ExhaustedError reports that every attempt failed, preserving the last cause.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsRateLimited reports whether an error looks like an upstream throttle.
// Providers are inconsistent about error types, so this matches on message
// content the way their payloads actually read.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "429")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
