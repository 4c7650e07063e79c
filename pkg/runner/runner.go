package runner

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/aretw0/sweep/internal/logging"
)

// ErrAlreadyStarted is returned when Start is called twice.
var ErrAlreadyStarted = errors.New("runner already started")

// Scan is the part of the scanner the runner drives. *sweep.Scanner implements it.
type Scan interface {
	DiscreteScan(ctx context.Context) (any, error)
	Abort() error
}

// Runner executes one scan on its own goroutine.
type Runner struct {
	scan       Scan
	logger     *slog.Logger
	signals    bool
	interrupts <-chan struct{}

	started atomic.Bool
	done    chan struct{}
	result  any
	err     error
}

// New creates a Runner for scan.
func New(scan Scan, opts ...Option) *Runner {
	r := &Runner{
		scan:   scan,
		logger: logging.NewNop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start launches the scan and returns immediately.
func (r *Runner) Start(ctx context.Context) error {
	if !r.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	go r.supervise(cancel)
	go func() {
		defer close(r.done)
		defer cancel()
		r.result, r.err = r.scan.DiscreteScan(ctx)
	}()
	return nil
}

// Run starts the scan and waits for it.
func (r *Runner) Run(ctx context.Context) (any, error) {
	if err := r.Start(ctx); err != nil {
		return nil, err
	}
	return r.Wait()
}

// Wait blocks until the scan returns.
func (r *Runner) Wait() (any, error) {
	<-r.done
	return r.result, r.err
}

// Done is closed when the scan returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) supervise(cancel context.CancelFunc) {
	var signalled <-chan os.Signal
	if r.signals {
		src := listenSignals()
		defer src.Stop()
		signalled = src.C()
	}

	in := r.interrupts
	count := 0
	for {
		select {
		case <-r.done:
			return
		case sig := <-signalled:
			r.logger.Debug("signal received", "signal", sig.String())
		case _, ok := <-in:
			if !ok {
				in = nil
				continue
			}
		}
		count++
		r.interrupt(count, cancel)
	}
}

func (r *Runner) interrupt(count int, cancel context.CancelFunc) {
	if count == 1 {
		r.logger.Warn("interrupt received, aborting at the next position")
		if err := r.scan.Abort(); err != nil {
			r.logger.Error("abort request failed", "error", err)
			cancel()
		}
		return
	}
	r.logger.Warn("second interrupt received, cancelling scan")
	cancel()
}
