package waitgroupx

import (
	"context"
	"sync/atomic"

	"github.com/determined-ai/jobsched/pkg/syncx/errgroupx"
)

// Group is a thin wrapper around sync.WaitGroup that associates a cancelable context with it and
// counts the goroutines still running.
type Group struct {
	inner  *errgroupx.Group
	active *atomic.Int64
}

// WithContext creates a Group as a child of the given context.
func WithContext(ctx context.Context) Group {
	return Group{inner: errgroupx.WithContext(ctx), active: &atomic.Int64{}}
}

// Go launch the given function in a goroutine as a member of the group.
func (g *Group) Go(f func(ctx context.Context)) {
	g.active.Add(1)
	g.inner.Go(func(ctx context.Context) error {
		defer g.active.Add(-1)
		f(ctx)
		return nil
	})
}

// Active returns the number of goroutines launched by Go that have not yet returned.
func (g *Group) Active() int {
	return int(g.active.Load())
}

// Wait for all child processes of the group to complete.
func (g *Group) Wait() { _ = g.inner.Wait() }

// Close the group by canceling it and waiting for it.
func (g *Group) Close() { _ = g.inner.Close() }
