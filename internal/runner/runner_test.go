package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// counter finishes after n steps and cancels ctx after cancelAt steps when set.
type counter struct {
	n        int
	steps    int
	cancelAt int
	cancel   context.CancelFunc
}

func (c *counter) Next(ctx context.Context) (StepResult, error) {
	c.steps++
	if c.cancel != nil && c.steps == c.cancelAt {
		c.cancel()
	}
	return StepResult{Done: c.steps >= c.n, Completed: c.steps, Total: c.n}, nil
}

func TestDrainRunsToCompletion(t *testing.T) {
	seq := &counter{n: 5}
	var reports []StepResult

	if err := Drain(context.Background(), seq, func(r StepResult) { reports = append(reports, r) }); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if seq.steps != 5 {
		t.Errorf("Expected 5 steps, got %d", seq.steps)
	}
	if len(reports) != 5 || reports[4].Progress() != 1 {
		t.Errorf("Expected 5 progress reports ending at 1.0, got %+v", reports)
	}
}

func TestDrainStopsAfterCurrentStepOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seq := &counter{n: 10, cancelAt: 3, cancel: cancel}

	err := Drain(ctx, seq, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Expected ErrCancelled, got %v", err)
	}
	if seq.steps != 3 {
		t.Errorf("Expected the step in flight to finish and no more to start, got %d steps", seq.steps)
	}
}

func TestDrainPropagatesStepError(t *testing.T) {
	boom := errors.New("boom")
	seq := SequenceFunc(func(ctx context.Context) (StepResult, error) {
		return StepResult{}, boom
	})
	if err := Drain(context.Background(), seq, nil); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}

func TestDrainWaitsOnBackgroundCall(t *testing.T) {
	release := make(chan struct{})
	call := Start(context.Background(), func(ctx context.Context) (string, error) {
		<-release
		return "oak", nil
	})

	polls := 0
	seq := SequenceFunc(func(ctx context.Context) (StepResult, error) {
		polls++
		if !call.Ready() {
			if polls == 1 {
				close(release)
			}
			return StepResult{Wait: call.Done()}, nil
		}
		return StepResult{Done: true}, nil
	})

	if err := Drain(context.Background(), seq, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, err := call.Result()
	if err != nil || got != "oak" {
		t.Errorf("Expected oak, got %q (%v)", got, err)
	}
	if polls != 2 {
		t.Errorf("Expected 2 polls, got %d", polls)
	}
}

func TestDriveResumesOncePerTick(t *testing.T) {
	ticks := make(chan time.Time)
	seq := &counter{n: 3}
	errc := make(chan error, 1)

	go func() { errc <- Drive(context.Background(), seq, ticks, nil) }()
	for i := 0; i < 3; i++ {
		ticks <- time.Now()
	}

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Drive did not finish")
	}
	if seq.steps != 3 {
		t.Errorf("Expected 3 steps, got %d", seq.steps)
	}
}

func TestDriveCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := &counter{n: 3}
	if err := Drive(ctx, seq, make(chan time.Time), nil); !errors.Is(err, ErrCancelled) {
		t.Errorf("Expected ErrCancelled, got %v", err)
	}
	if seq.steps != 0 {
		t.Errorf("Expected no steps, got %d", seq.steps)
	}
}

func TestCallIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	call := Start(ctx, func(ctx context.Context) (int, error) {
		cancel()
		return 42, ctx.Err()
	})
	v, err := call.Result()
	if err != nil || v != 42 {
		t.Errorf("Expected 42 with no error, got %d (%v)", v, err)
	}
}

func TestCallRecoversPanic(t *testing.T) {
	call := Start(context.Background(), func(ctx context.Context) (int, error) {
		panic("bad provider")
	})
	if _, err := call.Result(); err == nil {
		t.Error("Expected panic to surface as an error")
	}
}
