// Package poll implements a bounded fixed-interval wait-then-check loop.
package poll

import (
	"context"
	"time"
)

// Verdict is what a check decides about the polled resource.
type Verdict int

const (
	// Continue means the resource has not reached a terminal state yet.
	Continue Verdict = iota
	// Done means the resource reached its success state; the check's value is the result.
	Done
	// Abort means the resource reached a terminal failure state.
	Abort
)

// Outcome tags a Result.
type Outcome int

const (
	Succeeded Outcome = iota + 1
	Failed
	TimedOut
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of Until.
type Result[T any] struct {
	Outcome  Outcome
	Value    T
	Err      error // set for Failed, and for TimedOut when the context ended the loop
	Attempts int   // checks actually performed
}

// CheckFunc inspects the resource once. A non-nil error with Continue is remembered and
// polling goes on; with Abort it becomes the Result error.
type CheckFunc[T any] func(ctx context.Context, attempt int) (T, Verdict, error)

// Until waits interval, runs check, and repeats up to maxAttempts times. It never runs two checks
// concurrently. If ctx ends first the result is TimedOut with ctx.Err(); time already spent
// waiting is not given back.
func Until[T any](ctx context.Context, check CheckFunc[T], interval time.Duration, maxAttempts int) Result[T] {
	var res Result[T]
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			res.Outcome = TimedOut
			res.Err = ctx.Err()
			return res
		case <-timer.C:
		}

		value, verdict, err := check(ctx, attempt)
		res.Attempts = attempt

		switch verdict {
		case Done:
			res.Outcome = Succeeded
			res.Value = value
			return res
		case Abort:
			res.Outcome = Failed
			res.Value = value
			res.Err = err
			return res
		default:
			if err != nil {
				lastErr = err
			}
		}
	}

	res.Outcome = TimedOut
	res.Err = lastErr
	return res
}
