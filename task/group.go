// Package task runs the long-lived goroutines of a program as a Group, which
// is cancelled as a whole when any one of them fails.
package task

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Group is a set of tasks which run concurrently, and which are waited on
// together. Tasks must return upon cancellation of the Group Context. The
// first task to return a non-nil error cancels the Group. Group isn't itself
// safe for concurrent use.
type Group struct {
	// ctx is cancelled by a task error, by Cancel, or by its parent Context.
	ctx      context.Context
	cancelFn context.CancelFunc

	tasks   []task
	eg      *errgroup.Group
	started bool
}

type task struct {
	desc string
	fn   func() error
}

// NewGroup returns an empty Group of the Context.
func NewGroup(ctx context.Context) *Group {
	ctx, cancel := context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{ctx: ctx, eg: eg, cancelFn: cancel}
}

// Context of the Group.
func (g *Group) Context() context.Context { return g.ctx }

// Cancel the Group Context.
func (g *Group) Cancel() { g.cancelFn() }

// Queue |fn| for execution when GoRun is called. Errors of |fn| are
// prefixed with |desc|. Queue panics if GoRun was already called.
func (g *Group) Queue(desc string, fn func() error) {
	if g.started {
		panic("Queue called after GoRun")
	}
	g.tasks = append(g.tasks, task{desc: desc, fn: fn})
}

// GoRun starts all queued tasks. It panics if called more than once.
func (g *Group) GoRun() {
	if g.started {
		panic("GoRun already called")
	}
	g.started = true

	for i := range g.tasks {
		var t = g.tasks[i]
		g.eg.Go(func() error { return errors.WithMessage(t.fn(), t.desc) })
	}
}

// Wait for all started tasks to return, returning the first non-nil error.
// It panics if GoRun wasn't called.
func (g *Group) Wait() error {
	if !g.started {
		panic("Wait called before GoRun")
	}
	return g.eg.Wait()
}
