// Package retry implements the analysis pipeline's per-chunk retry
// coordination: exponential backoff with an agent-advised retry-after
// override, both capped at a maximum delay.
package retry

import (
	"math"
	"time"

	"github.com/thiscantbeserious/agr/internal/errs"
)

// Policy tunes retry behaviour for the agent dispatch loop.
type Policy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
}

// DefaultPolicy matches the original implementation's defaults: 3 attempts,
// 1s initial delay, 2x multiplier, 60s cap.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       3,
		InitialDelay:      time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          60 * time.Second,
	}
}

// ShouldRetry reports whether another attempt may be made once the given
// number of attempts have been made and failed.
func (p Policy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// WaitDuration computes the delay before the next attempt. An
// agent-advised retryAfter takes precedence over the exponential backoff
// schedule but is still capped at MaxDelay; otherwise the delay is
// initialDelay * multiplier^attempt, also capped.
func (p Policy) WaitDuration(attempt int, retryAfter *time.Duration) time.Duration {
	if retryAfter != nil {
		if *retryAfter > p.MaxDelay {
			return p.MaxDelay
		}
		return *retryAfter
	}
	delay := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt))
	d := time.Duration(delay)
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Classify narrows an arbitrary error down to its *errs.AnalysisError form
// when possible, so callers that only have a generic error can still
// consult IsRetriable/GetRetryAfter.
func Classify(err error) (*errs.AnalysisError, bool) {
	ae, ok := err.(*errs.AnalysisError)
	return ae, ok
}

// Attempt is the outcome of one try: either a value T or a classified
// error with its retriability already resolved.
type Attempt[T any] struct {
	Value T
	Err   error
}

// Do runs fn up to policy.MaxAttempts times, sleeping between attempts per
// WaitDuration, stopping early on a fatal (non-retriable) error. sleep is
// injected so callers can make it interruptible or skip it in tests.
func Do[T any](policy Policy, sleep func(time.Duration), fn func(attempt int) (T, error)) (T, int, error) {
	var zero T
	var lastErr error

	for attempt := 0; ; attempt++ {
		value, err := fn(attempt)
		if err == nil {
			return value, attempt + 1, nil
		}
		lastErr = err

		ae, ok := Classify(err)
		retriable := ok && ae.IsRetriable()
		if !retriable || !policy.ShouldRetry(attempt+1) {
			return zero, attempt + 1, lastErr
		}

		var retryAfter *time.Duration
		if ok {
			if ra, has := ae.GetRetryAfter(); has {
				retryAfter = &ra
			}
		}
		sleep(policy.WaitDuration(attempt, retryAfter))
	}
}
