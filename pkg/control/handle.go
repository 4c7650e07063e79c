// Package control provides the in-process pause/abort handle shared between
// a running scan and the goroutines that steer it.
package control

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/sweep/pkg/ports"
)

// Handle is a lock-free ports.Controller. The zero value is ready to use.
type Handle struct {
	paused    atomic.Bool
	aborted   atomic.Bool
	completed atomic.Int64
	total     atomic.Int64
}

var _ ports.Controller = (*Handle)(nil)

// New returns a fresh Handle.
func New() *Handle {
	return &Handle{}
}

func (h *Handle) Pause(context.Context) error {
	h.paused.Store(true)
	return nil
}

func (h *Handle) Resume(context.Context) error {
	h.paused.Store(false)
	return nil
}

// Abort raises the abort flag. It stays raised until Reset, so an abort
// requested before a scan starts stops that scan at its first position.
func (h *Handle) Abort(context.Context) error {
	h.aborted.Store(true)
	return nil
}

func (h *Handle) Paused(context.Context) (bool, error) {
	return h.paused.Load(), nil
}

func (h *Handle) Aborted(context.Context) (bool, error) {
	return h.aborted.Load(), nil
}

func (h *Handle) Reset(context.Context) error {
	h.paused.Store(false)
	h.aborted.Store(false)
	return nil
}

func (h *Handle) SetProgress(_ context.Context, completed, total int) error {
	h.total.Store(int64(total))
	h.completed.Store(int64(completed))
	return nil
}

func (h *Handle) Progress(context.Context) (int, int, error) {
	return int(h.completed.Load()), int(h.total.Load()), nil
}
