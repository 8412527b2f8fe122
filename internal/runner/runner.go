// Package runner executes long operations one unit of work at a time so the
// caller keeps control between steps.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is returned when the context is cancelled between steps
var ErrCancelled = errors.New("operation cancelled")

// StepResult describes the state of a sequence after one resumption
type StepResult struct {
	Done      bool
	Completed int
	Total     int
	Label     string

	// Wait is non-nil while the sequence is parked on a background call.
	// The next resumption should happen after it closes.
	Wait <-chan struct{}
}

// Progress returns the completed fraction in [0, 1].
func (r StepResult) Progress() float64 {
	if r.Total <= 0 {
		if r.Done {
			return 1
		}
		return 0
	}
	return float64(r.Completed) / float64(r.Total)
}

// Sequence advances a multi-step operation by one unit of work per call
type Sequence interface {
	Next(ctx context.Context) (StepResult, error)
}

// SequenceFunc adapts a function to the Sequence interface
type SequenceFunc func(ctx context.Context) (StepResult, error)

func (f SequenceFunc) Next(ctx context.Context) (StepResult, error) {
	return f(ctx)
}

// Drain runs seq to completion on the calling goroutine. Background waits
// block until the call finishes or ctx is cancelled.
func Drain(ctx context.Context, seq Sequence, progress func(StepResult)) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		res, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		if progress != nil {
			progress(res)
		}
		if res.Done {
			return nil
		}
		if res.Wait != nil {
			select {
			case <-res.Wait:
			case <-ctx.Done():
			}
		}
	}
}

// Drive resumes seq once per tick, reporting progress between resumptions.
// It returns when the sequence finishes, fails, ctx is cancelled, or ticks closes.
func Drive(ctx context.Context, seq Sequence, ticks <-chan time.Time, progress func(StepResult)) error {
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		case _, ok := <-ticks:
			if !ok {
				return fmt.Errorf("%w: driver stopped", ErrCancelled)
			}
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		res, err := seq.Next(ctx)
		if err != nil {
			return err
		}
		if progress != nil {
			progress(res)
		}
		if res.Done {
			return nil
		}
	}
}

// Every drives seq from a ticker with the given interval.
func Every(ctx context.Context, seq Sequence, interval time.Duration, progress func(StepResult)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	return Drive(ctx, seq, ticker.C, progress)
}
