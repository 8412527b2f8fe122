package runner

import (
	"context"
	"fmt"
)

// Call is a single blocking function running on its own goroutine. The
// orchestrating sequence polls it and never blocks on it.
type Call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Start runs fn in the background. fn receives a context detached from the
// caller's cancellation: an abandoned call runs to completion and its result
// is simply never read.
func Start[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Call[T] {
	c := &Call[T]{done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(c.done)
		defer func() {
			if r := recover(); r != nil {
				c.err = fmt.Errorf("background call panicked: %v", r)
			}
		}()
		c.value, c.err = fn(detached)
	}()
	return c
}

// Done is closed once the call has returned.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Ready reports whether the result is available without blocking.
func (c *Call[T]) Ready() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Result returns the call's outcome. It must only be called once Ready is true.
func (c *Call[T]) Result() (T, error) {
	<-c.done
	return c.value, c.err
}
