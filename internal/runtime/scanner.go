// Package runtime implements the scan state machine.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/internal/logging"
	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/condition"
	"github.com/aretw0/sweep/pkg/control"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/ports"
	"github.com/aretw0/sweep/pkg/positioner"
	"github.com/aretw0/sweep/pkg/processor"
)

// ErrScanInProgress is returned when DiscreteScan is called on a busy scanner.
var ErrScanInProgress = errors.New("scan already in progress")

// Scanner drives a positioner through write, settle, read, validate and
// record, one position at a time.
type Scanner struct {
	positioner positioner.Positioner
	writer     ports.Writer
	reader     ports.Reader
	processor  processor.Processor

	condReader ports.ConditionReader
	validator  *condition.Validator
	executors  map[domain.Hook][]*action.Executor
	settings   domain.ScanSettings
	control    ports.Controller
	locker     ports.DistributedLocker
	lockKey    string
	lockTTL    time.Duration
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	clock      clock.Clock
	name       string
	stepBack   bool

	mu      sync.RWMutex
	state   domain.ScanState
	running atomic.Bool
}

// NewScanner validates the collaborators and builds a Scanner.
// A nil writer is allowed for scans that never move anything (Static, Time).
func NewScanner(pos positioner.Positioner, writer ports.Writer, reader ports.Reader, proc processor.Processor, opts ...ScannerOption) (*Scanner, error) {
	s := &Scanner{
		positioner: pos,
		writer:     writer,
		reader:     reader,
		processor:  proc,
		executors:  make(map[domain.Hook][]*action.Executor),
		settings:   domain.DefaultScanSettings(),
		state:      domain.StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case pos == nil:
		return nil, domain.Configf("positioner", "a positioner is required")
	case reader == nil:
		return nil, domain.Configf("reader", "a reader is required")
	case proc == nil:
		return nil, domain.Configf("processor", "a data processor is required")
	case s.validator.Len() > 0 && s.condReader == nil:
		return nil, domain.Configf("conditions", "%d conditions configured without a condition reader", s.validator.Len())
	}
	if s.stepBack {
		if _, ok := proc.(processor.Discarder); !ok {
			return nil, domain.Configf("step_back", "processor %T cannot discard recorded entries", proc)
		}
	}

	s.settings = s.settings.WithDefaults()
	if s.control == nil {
		s.control = control.New()
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.name != "" {
		s.logger = s.logger.With("scan", s.name)
	}
	if s.locker != nil {
		if s.lockKey == "" {
			s.lockKey = "scan:" + s.name
		}
		if s.lockTTL <= 0 {
			s.lockTTL = DefaultLockTTL
		}
	}
	return s, nil
}

// scanRun is the bookkeeping of one DiscreteScan call.
type scanRun struct {
	id        string
	logger    *slog.Logger
	started   time.Time
	total     int
	completed int
	axes      int
	prev      domain.Position
}

func (r *scanRun) event(c clock.PassiveClock) domain.EventBase {
	return domain.EventBase{Timestamp: c.Now(), ScanID: r.id}
}

// DiscreteScan runs the whole scan and returns the processor's data.
//
// Finalization actions run exactly once whenever initialization was reached,
// whatever the outcome. Cancelling ctx is treated like Abort. Pause and abort
// requests raised before the scan starts apply to it; the flags are cleared
// once the scan reaches a terminal state.
func (s *Scanner) DiscreteScan(ctx context.Context) (result any, err error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.running.Store(false)

	total, err := positioner.Count(s.positioner)
	if err != nil {
		return nil, fmt.Errorf("count positions: %w", err)
	}

	run := &scanRun{
		id:      uuid.NewString(),
		started: s.clock.Now(),
		total:   total,
		axes:    -1,
	}
	run.logger = s.logger.With("scan_id", run.id)

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, s.lockKey, s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire scan lock %q: %w", s.lockKey, err)
		}
		defer func() {
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				run.logger.Warn("failed to release scan lock", "key", s.lockKey, "error", uerr)
			}
		}()
	}

	run.logger.Info("scan started", "positions", total)
	defer func() {
		err = s.finalize(ctx, run, err)
		if err != nil {
			result = nil
		}
	}()

	if err := s.run(ctx, run); err != nil {
		return nil, err
	}
	return s.processor.Data(), nil
}

func (s *Scanner) run(ctx context.Context, run *scanRun) error {
	s.setState(ctx, run, domain.StateInitializing)
	s.report(ctx, run)
	if err := s.execute(ctx, domain.HookInitialization); err != nil {
		return s.interrupt(ctx, run, err)
	}

	positions, stop := s.positions(ctx)
	defer stop()

	index := 0
	for pos, err := range positions {
		if err != nil {
			if errors.Is(err, domain.ErrUserAbort) {
				return s.abortError(run, nil)
			}
			return s.interrupt(ctx, run, fmt.Errorf("position %d: %w", index, err))
		}
		if err := s.checkpoint(ctx, run); err != nil {
			return s.interrupt(ctx, run, err)
		}
		if err := s.visit(ctx, run, index, pos, s.stepBack); err != nil {
			return s.interrupt(ctx, run, err)
		}
		run.prev = pos
		index++
	}
	return nil
}

// positions iterates the positioner. Positioners that wait between positions
// get a context that is cancelled with domain.ErrUserAbort as soon as the
// abort flag is seen, so a long wait does not delay the abort. Writes and
// reads never see that context.
func (s *Scanner) positions(ctx context.Context) (iter.Seq2[domain.Position, error], func()) {
	if _, ok := s.positioner.(positioner.ContextPositioner); !ok {
		return s.positioner.Positions(), func() {}
	}

	pctx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for s.sleep(pctx, s.settings.PollInterval) == nil {
			if aborted, err := s.control.Aborted(pctx); err == nil && aborted {
				cancel(domain.ErrUserAbort)
				return
			}
		}
	}()
	stop := func() {
		cancel(nil)
		<-done
	}
	return positioner.Iterate(pctx, s.positioner), stop
}

// visit moves to pos, acquires a valid sample, records it and reports progress.
func (s *Scanner) visit(ctx context.Context, run *scanRun, index int, pos domain.Position, stepBack bool) error {
	started := s.clock.Now()
	if run.axes < 0 {
		run.axes = len(pos)
	} else if len(pos) != run.axes {
		return domain.Configf("positioner", "position %d has %d axes, expected %d", index, len(pos), run.axes)
	}

	if err := s.move(ctx, run, pos); err != nil {
		return err
	}

	s.setState(ctx, run, domain.StateBeforeMeasure)
	if err := s.execute(ctx, domain.HookBeforeMeasurement); err != nil {
		return err
	}

	sample, attempts, err := s.acquire(ctx, run, index, pos, stepBack)
	if err != nil {
		return err
	}
	if err := s.processor.Process(pos, sample); err != nil {
		return fmt.Errorf("process position %d: %w", index, err)
	}

	s.setState(ctx, run, domain.StateAfterMeasure)
	if err := s.execute(ctx, domain.HookAfterMeasurement); err != nil {
		return err
	}

	run.completed++
	s.report(ctx, run)

	elapsed := s.clock.Since(started)
	run.logger.Debug("position recorded", "index", index, "position", pos.String(), "attempts", attempts, "duration", elapsed)
	if s.hooks.OnPosition != nil {
		s.hooks.OnPosition(ctx, &domain.PositionEvent{
			EventBase: run.event(s.clock),
			Index:     index,
			Total:     run.total,
			Position:  pos.Clone(),
			Duration:  elapsed,
			Attempts:  attempts,
		})
	}
	return nil
}

func (s *Scanner) move(ctx context.Context, run *scanRun, pos domain.Position) error {
	s.setState(ctx, run, domain.StatePositioning)
	if err := s.execute(ctx, domain.HookBeforeMove); err != nil {
		return err
	}
	if err := s.write(ctx, pos); err != nil {
		return err
	}
	if err := s.execute(ctx, domain.HookAfterMove); err != nil {
		return err
	}

	if s.settings.SettlingTime > 0 {
		s.setState(ctx, run, domain.StateSettling)
		return s.sleep(ctx, s.settings.SettlingTime)
	}
	return nil
}

func (s *Scanner) write(ctx context.Context, pos domain.Position) error {
	if s.writer == nil || len(pos) == 0 {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, s.settings.WriteTimeout)
	defer cancel()

	err := s.writer.Write(wctx, pos)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, domain.ErrActuationTimeout):
		var timeout *domain.ActuationTimeout
		if errors.As(err, &timeout) {
			return timeout
		}
		return &domain.ActuationTimeout{Position: pos.Clone(), Timeout: s.settings.WriteTimeout, Cause: err}
	default:
		return fmt.Errorf("write %s: %w", pos, err)
	}
}

// acquire reads NMeasurements valid samples at pos. A Retry-policy failure
// discards the sample and reads again after RetryDelay, at most MaxRetries
// times in a row.
func (s *Scanner) acquire(ctx context.Context, run *scanRun, index int, pos domain.Position, stepBack bool) (domain.Sample, int, error) {
	n := s.settings.NMeasurements
	samples := make([]domain.Measurement, 0, n)
	attempts, retries := 0, 0

	for len(samples) < n {
		if len(samples) > 0 {
			if err := s.sleep(ctx, s.settings.MeasurementInterval); err != nil {
				return nil, attempts, err
			}
		}

		s.setState(ctx, run, domain.StateMeasuring)
		m, err := s.reader.Read(ctx)
		attempts++
		if err != nil {
			return nil, attempts, fmt.Errorf("read at position %d: %w", index, err)
		}

		verr := s.validate(ctx, run)
		if verr == nil {
			samples = append(samples, m)
			retries = 0
			continue
		}

		var cerr *domain.ConditionError
		if !errors.As(verr, &cerr) {
			return nil, attempts, verr
		}
		if cerr.Policy == domain.PolicyAbort {
			return nil, attempts, cerr
		}
		if retries >= s.settings.MaxRetries {
			return nil, attempts, &domain.RetryExhaustedError{Position: pos.Clone(), Attempts: retries + 1, Last: cerr}
		}
		retries++

		run.logger.Warn("sample rejected", "index", index, "attempt", retries, "channel", cerr.Channel, "error", cerr)
		if s.hooks.OnRetry != nil {
			s.hooks.OnRetry(ctx, &domain.RetryEvent{EventBase: run.event(s.clock), Index: index, Attempt: retries, Cause: cerr})
		}

		if stepBack && run.prev != nil {
			stepBack = false
			samples = samples[:0]
			if err := s.stepBackFrom(ctx, run, index, pos); err != nil {
				return nil, attempts, err
			}
		}
		if err := s.sleep(ctx, s.settings.RetryDelay); err != nil {
			return nil, attempts, err
		}
	}

	if n == 1 {
		return samples[0], attempts, nil
	}
	return samples, attempts, nil
}

// stepBackFrom drops the last recorded entry, measures the previous
// position again and returns to current.
func (s *Scanner) stepBackFrom(ctx context.Context, run *scanRun, index int, current domain.Position) error {
	if err := s.processor.(processor.Discarder).DiscardLast(); err != nil {
		return fmt.Errorf("step back from position %d: %w", index, err)
	}
	run.completed--
	run.logger.Warn("stepping back", "index", index-1, "position", run.prev.String())

	if err := s.visit(ctx, run, index-1, run.prev, false); err != nil {
		return err
	}
	return s.move(ctx, run, current)
}

func (s *Scanner) validate(ctx context.Context, run *scanRun) error {
	if s.validator.Len() == 0 {
		return nil
	}
	s.setState(ctx, run, domain.StateValidating)
	values, err := s.condReader.ReadConditions(ctx)
	if err != nil {
		return fmt.Errorf("read conditions: %w", err)
	}
	return s.validator.Validate(values)
}

// checkpoint honours the abort and pause flags. While paused it polls every
// PollInterval, so an abort issued during a pause is seen within one interval.
func (s *Scanner) checkpoint(ctx context.Context, run *scanRun) error {
	var resume domain.ScanState
	for {
		if err := ctx.Err(); err != nil {
			return s.abortError(run, err)
		}

		aborted, err := s.control.Aborted(ctx)
		if err != nil {
			return fmt.Errorf("read abort flag: %w", err)
		}
		if aborted {
			return s.abortError(run, nil)
		}

		paused, err := s.control.Paused(ctx)
		if err != nil {
			return fmt.Errorf("read pause flag: %w", err)
		}
		if !paused {
			if resume != "" {
				run.logger.Info("scan resumed")
				s.setState(ctx, run, resume)
			}
			return nil
		}

		if resume == "" {
			resume = s.State()
			run.logger.Info("scan paused", "completed", run.completed, "total", run.total)
			s.setState(ctx, run, domain.StatePaused)
		}
		if err := s.sleep(ctx, s.settings.PollInterval); err != nil {
			return s.abortError(run, err)
		}
	}
}

func (s *Scanner) report(ctx context.Context, run *scanRun) {
	if run.completed > 0 {
		s.setState(ctx, run, domain.StateProgressReport)
	}
	if err := s.control.SetProgress(ctx, run.completed, run.total); err != nil {
		run.logger.Warn("failed to publish progress", "error", err)
	}
	if s.settings.Progress != nil {
		s.settings.Progress(run.completed, run.total)
	}
}

func (s *Scanner) execute(ctx context.Context, hook domain.Hook) error {
	for _, e := range s.executors[hook] {
		if err := e.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

// finalize runs the finalization actions on a context that outlives ctx and
// settles the terminal state.
func (s *Scanner) finalize(ctx context.Context, run *scanRun, err error) error {
	s.setState(ctx, run, domain.StateFinalizing)
	if ferr := s.execute(context.WithoutCancel(ctx), domain.HookFinalization); ferr != nil {
		run.logger.Error("finalization failed", "error", ferr)
		if err == nil {
			err = ferr
		} else {
			err = errors.Join(err, ferr)
		}
	}

	final := domain.StateCompleted
	switch {
	case err == nil:
		run.logger.Info("scan completed", "positions", run.completed, "duration", s.clock.Since(run.started))
	case errors.Is(err, domain.ErrUserAbort):
		final = domain.StateAborted
		run.logger.Warn("scan aborted", "completed", run.completed, "total", run.total)
	default:
		final = domain.StateFailed
		run.logger.Error("scan failed", "completed", run.completed, "total", run.total, "error", err)
	}
	s.setState(ctx, run, final)
	if rerr := s.control.Reset(context.WithoutCancel(ctx)); rerr != nil {
		run.logger.Warn("failed to reset controller", "error", rerr)
	}

	if s.hooks.OnComplete != nil {
		s.hooks.OnComplete(context.WithoutCancel(ctx), &domain.CompleteEvent{
			EventBase: run.event(s.clock),
			State:     final,
			Duration:  s.clock.Since(run.started),
			Err:       err,
		})
	}
	return err
}

// interrupt turns failures caused by a cancelled ctx into a user abort.
func (s *Scanner) interrupt(ctx context.Context, run *scanRun, err error) error {
	if errors.Is(err, domain.ErrUserAbort) {
		return err
	}
	if cerr := ctx.Err(); cerr != nil {
		return s.abortError(run, cerr)
	}
	return err
}

func (s *Scanner) abortError(run *scanRun, cause error) error {
	return &domain.AbortError{Completed: run.completed, Total: run.total, Cause: cause}
}

func (s *Scanner) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

func (s *Scanner) setState(ctx context.Context, run *scanRun, to domain.ScanState) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	run.logger.Debug("state transition", "from", from, "to", to)
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(ctx, &domain.StateEvent{EventBase: run.event(s.clock), From: from, To: to})
	}
}

// State returns the current phase of the state machine.
func (s *Scanner) State() domain.ScanState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Running reports whether DiscreteScan is executing.
func (s *Scanner) Running() bool { return s.running.Load() }

// Pause asks the scan to stop at the next position boundary.
func (s *Scanner) Pause(ctx context.Context) error { return s.control.Pause(ctx) }

// Resume clears a pause request.
func (s *Scanner) Resume(ctx context.Context) error { return s.control.Resume(ctx) }

// Abort asks the scan to stop at the next position boundary, or immediately
// when it is paused.
func (s *Scanner) Abort(ctx context.Context) error { return s.control.Abort(ctx) }

// Progress returns the number of recorded positions and the total.
func (s *Scanner) Progress(ctx context.Context) (int, int, error) { return s.control.Progress(ctx) }

// Settings returns the resolved scan settings.
func (s *Scanner) Settings() domain.ScanSettings { return s.settings }

// Controller returns the handle the scan polls for pause and abort.
func (s *Scanner) Controller() ports.Controller { return s.control }
