package errgroupx

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// PanicError is the error a recovering Group reports for a goroutine that panicked.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%v\n%s", e.Value, e.Stack)
}

// Group is an errgroup.Group whose context is canceled when the group is closed, so that the
// context cannot outlive the goroutines it scopes.
type Group struct {
	inner   *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	recover bool
}

// WithContext creates a Group as a child of the given context.
func WithContext(ctx context.Context) *Group {
	parent, cancel := context.WithCancel(ctx)
	g, groupCtx := errgroup.WithContext(parent)
	return &Group{inner: g, ctx: groupCtx, cancel: cancel}
}

// WithRecover makes the group turn panics in its goroutines into a *PanicError returned by Wait.
func (g *Group) WithRecover() *Group {
	g.recover = true
	return g
}

// Go runs f in a new goroutine with the group-scoped context. A non-nil error cancels the group.
func (g *Group) Go(f func(ctx context.Context) error) {
	g.inner.Go(func() (err error) {
		if g.recover {
			defer func() {
				if rec := recover(); rec != nil {
					err = &PanicError{Value: rec, Stack: debug.Stack()}
				}
			}()
		}
		return f(g.ctx)
	})
}

// Wait blocks until every goroutine returns and reports the first error.
func (g *Group) Wait() error {
	return g.inner.Wait()
}

// Close cancels the group and waits for it.
func (g *Group) Close() error {
	g.cancel()
	return g.Wait()
}
