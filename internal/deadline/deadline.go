// Package deadline bounds waits with a timeout and reports expiry as an
// outcome instead of an error, so callers can render it like any other
// result.
package deadline

import (
	"context"
	"errors"
	"time"
)

// Outcome describes how a bounded wait ended.
type Outcome struct {
	// Expired is set when the timeout elapsed before the work finished.
	Expired bool
	// Canceled is set when the parent context ended first.
	Canceled bool
	Attempts int
	Elapsed  time.Duration
	// Err is the work's own error, or the context error on expiry.
	Err error
}

// Done reports whether the work finished before the deadline without error.
func (o Outcome) Done() bool {
	return !o.Expired && !o.Canceled && o.Err == nil
}

// Run calls fn with a context that expires after timeout and returns no
// later than that, even if fn ignores its context. fn keeps running in the
// background in that case; its result is discarded.
func Run(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) Outcome {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(runCtx)
	}()

	select {
	case err := <-done:
		out := Outcome{Attempts: 1, Elapsed: time.Since(start), Err: err}
		if err != nil {
			out.Expired, out.Canceled = classify(ctx, runCtx)
		}
		return out
	case <-runCtx.Done():
		out := Outcome{Attempts: 1, Elapsed: time.Since(start), Err: runCtx.Err()}
		out.Expired, out.Canceled = classify(ctx, runCtx)
		return out
	}
}

// Poll evaluates cond until it returns true or timeout elapses, waiting
// interval between attempts. The first attempt happens immediately.
func Poll(ctx context.Context, timeout, interval time.Duration, cond func(ctx context.Context) bool) Outcome {
	start := time.Now()

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	attempts := 0
	for {
		attempts++
		if cond(pollCtx) {
			return Outcome{Attempts: attempts, Elapsed: time.Since(start)}
		}

		select {
		case <-pollCtx.Done():
			out := Outcome{Attempts: attempts, Elapsed: time.Since(start), Err: pollCtx.Err()}
			out.Expired, out.Canceled = classify(ctx, pollCtx)
			return out
		case <-ticker.C:
		}
	}
}

func classify(parent, bounded context.Context) (expired, canceled bool) {
	if parent.Err() != nil {
		return false, true
	}
	return errors.Is(bounded.Err(), context.DeadlineExceeded), false
}
