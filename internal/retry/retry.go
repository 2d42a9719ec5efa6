// Package retry implements the deadline-aware exponential-backoff retry
// loop used for device-readiness waits (spec.md §7), grounded on the
// teacher's simulator.Manager.WaitForBoot deadline+ticker polling loop,
// generalized from a single fixed-interval boot check to a configurable
// backoff policy. Uses benbjohnson/clock so callers get deterministic,
// fast-running tests instead of real sleeps.
package retry

import (
	"context"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
)

// Deadline wraps an absolute expiry time against an injectable clock.
type Deadline struct {
	clock clock.Clock
	at    time.Time
}

// NewDeadline returns a Deadline expiring timeout from now (per clk).
func NewDeadline(clk clock.Clock, timeout time.Duration) Deadline {
	return Deadline{clock: clk, at: clk.Now().Add(timeout)}
}

// RemainingMs returns the milliseconds left before expiry, clamped to 0.
func (d Deadline) RemainingMs() int64 {
	remaining := d.at.Sub(d.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining.Milliseconds()
}

// IsExpired reports whether the deadline has passed.
func (d Deadline) IsExpired() bool {
	return !d.clock.Now().Before(d.at)
}

// Policy configures exponential backoff with full jitter. The daemon
// builds one from its single retry config each time it retries an
// operation (handlers.Deps.retryPolicy); operation kinds are not tuned
// separately.
type Policy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Jitter       bool
	Clock        clock.Clock
	RandInt63n   func(n int64) int64 // overridable for deterministic tests
}

// DefaultPolicy returns a Policy with sane production defaults.
func DefaultPolicy(clk clock.Clock) Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      true,
		Clock:       clk,
	}
}

// delayForAttempt returns the backoff delay before attempt (1-based),
// exponential in attempt, capped at MaxDelay, with full jitter applied
// when Jitter is set (a uniform random value in [0, computed delay)).
func (p Policy) delayForAttempt(attempt int) time.Duration {
	delay := p.BaseDelay << uint(attempt-1)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	if !p.Jitter || delay <= 0 {
		return delay
	}
	randInt63n := p.RandInt63n
	if randInt63n == nil {
		randInt63n = rand.Int63n
	}
	return time.Duration(randInt63n(int64(delay)))
}

// EventKind classifies a telemetry event emitted during Do's loop.
type EventKind string

const (
	EventAttemptFailed   EventKind = "attempt_failed"
	EventRetryScheduled  EventKind = "retry_scheduled"
	EventSucceeded       EventKind = "succeeded"
	EventGaveUp          EventKind = "gave_up"
)

// Event carries one telemetry point from Do's loop, per spec.md §7's
// phase/attempt/delay/elapsed/remaining/reason shape.
type Event struct {
	Kind      EventKind
	Phase     string
	Attempt   int
	DelayMs   int64
	ElapsedMs int64
	Remaining int64
	Reason    string
}

// Classifier decides whether an error returned by an operation is worth
// retrying and what reason code to attach to telemetry.
type Classifier func(err error) (retryable bool, reason string)

// Do runs op up to Policy.MaxAttempts times (or until ctx/deadline
// expires), sleeping with exponential backoff between attempts,
// classifying each failure via classify, and reporting progress via
// onEvent (which may be nil).
func Do(ctx context.Context, p Policy, phase string, deadline Deadline, classify Classifier, onEvent func(Event), op func(ctx context.Context) error) error {
	start := p.Clock.Now()
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if deadline.IsExpired() {
			return lastErr
		}

		err := op(ctx)
		if err == nil {
			if onEvent != nil {
				onEvent(Event{Kind: EventSucceeded, Phase: phase, Attempt: attempt, ElapsedMs: p.Clock.Now().Sub(start).Milliseconds()})
			}
			return nil
		}
		lastErr = err

		retryable, reason := true, ""
		if classify != nil {
			retryable, reason = classify(err)
		}
		elapsed := p.Clock.Now().Sub(start).Milliseconds()
		if onEvent != nil {
			onEvent(Event{Kind: EventAttemptFailed, Phase: phase, Attempt: attempt, ElapsedMs: elapsed, Remaining: deadline.RemainingMs(), Reason: reason})
		}

		if !retryable || attempt == p.MaxAttempts {
			if onEvent != nil {
				onEvent(Event{Kind: EventGaveUp, Phase: phase, Attempt: attempt, ElapsedMs: elapsed, Reason: reason})
			}
			return lastErr
		}

		delay := p.delayForAttempt(attempt)
		if remaining := deadline.RemainingMs(); time.Duration(remaining)*time.Millisecond < delay {
			delay = time.Duration(remaining) * time.Millisecond
		}
		if onEvent != nil {
			onEvent(Event{Kind: EventRetryScheduled, Phase: phase, Attempt: attempt, DelayMs: delay.Milliseconds(), ElapsedMs: elapsed, Reason: reason})
		}

		t := p.Clock.Timer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}

	return lastErr
}
