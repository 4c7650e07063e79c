// Package action runs groups of side-effecting callables at the lifecycle
// hooks of a scan.
package action

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
)

// Func is the side effect of an action.
type Func func(ctx context.Context) error

// Action is a named callable. Actions sharing the same Order form a group;
// groups run in ascending Order, each one completing before the next starts.
type Action struct {
	Name  string
	Order int
	Fn    Func
}

// Executor runs the actions bound to one lifecycle hook.
type Executor struct {
	hook     domain.Hook
	actions  []Action
	settle   time.Duration
	parallel bool
	clock    clock.Clock
}

// Option configures an Executor.
type Option func(*Executor)

// WithSettle sets a delay applied after all actions of the hook ran.
func WithSettle(d time.Duration) Option {
	return func(e *Executor) {
		e.settle = d
	}
}

// WithParallelGroups runs the members of a group concurrently.
func WithParallelGroups() Option {
	return func(e *Executor) {
		e.parallel = true
	}
}

// WithClock replaces the clock used for the settle delay.
func WithClock(c clock.Clock) Option {
	return func(e *Executor) {
		e.clock = c
	}
}

// NewExecutor creates an empty executor for hook.
func NewExecutor(hook domain.Hook, opts ...Option) *Executor {
	e := &Executor{
		hook:  hook,
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Add registers actions. A nil Fn is a configuration error.
func (e *Executor) Add(actions ...Action) error {
	for _, a := range actions {
		if a.Fn == nil {
			return domain.Configf("actions", "%s action %q has no function", e.hook, a.Name)
		}
	}
	e.actions = append(e.actions, actions...)
	return nil
}

// AddFunc registers fn in group 0.
func (e *Executor) AddFunc(name string, fn Func) error {
	return e.Add(Action{Name: name, Fn: fn})
}

// Hook returns the lifecycle hook the executor is bound to.
func (e *Executor) Hook() domain.Hook { return e.hook }

// Len returns the number of registered actions.
func (e *Executor) Len() int { return len(e.actions) }

// Groups returns the actions grouped by Order, in execution order.
func (e *Executor) Groups() [][]Action {
	sorted := slices.Clone(e.actions)
	slices.SortStableFunc(sorted, func(a, b Action) int { return a.Order - b.Order })

	var groups [][]Action
	for i, a := range sorted {
		if i == 0 || a.Order != sorted[i-1].Order {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], a)
	}
	return groups
}

// Execute runs every group in order and then waits for the settle delay,
// which ends early when ctx is done.
// The first failing action stops the remaining groups; its error is
// returned as a *domain.ActionError.
func (e *Executor) Execute(ctx context.Context) error {
	if e == nil {
		return nil
	}
	for _, group := range e.Groups() {
		if err := e.runGroup(ctx, group); err != nil {
			return err
		}
	}
	if e.settle > 0 && len(e.actions) > 0 {
		if err := e.wait(ctx); err != nil {
			return &domain.ActionError{Hook: e.hook, Action: "settle", Err: err}
		}
	}
	return nil
}

// wait sleeps the settle delay or until ctx is done. A context that can never
// be cancelled uses clock.Sleep, which fake clocks turn into a step.
func (e *Executor) wait(ctx context.Context) error {
	if ctx.Done() == nil {
		e.clock.Sleep(e.settle)
		return nil
	}
	t := e.clock.NewTimer(e.settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

func (e *Executor) runGroup(ctx context.Context, group []Action) error {
	if !e.parallel || len(group) == 1 {
		for _, a := range group {
			if err := e.run(ctx, a); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range group {
		g.Go(func() error {
			return e.run(gctx, a)
		})
	}
	return g.Wait()
}

func (e *Executor) run(ctx context.Context, a Action) error {
	if err := ctx.Err(); err != nil {
		return &domain.ActionError{Hook: e.hook, Action: a.Name, Err: err}
	}
	if err := a.Fn(ctx); err != nil {
		return &domain.ActionError{Hook: e.hook, Action: a.Name, Err: err}
	}
	return nil
}
