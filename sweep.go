package sweep

import (
	"context"
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/internal/runtime"
	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/condition"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/ports"
	"github.com/aretw0/sweep/pkg/positioner"
	"github.com/aretw0/sweep/pkg/processor"
)

// Errors returned by DiscreteScan. Match them with errors.Is.
var (
	ErrConfiguration    = domain.ErrConfiguration
	ErrActuationTimeout = domain.ErrActuationTimeout
	ErrRetryExhausted   = domain.ErrRetryExhausted
	ErrConditionAbort   = domain.ErrConditionAbort
	ErrUserAbort        = domain.ErrUserAbort
	ErrScanInProgress   = runtime.ErrScanInProgress
)

// Scanner is the high-level entry point of the library.
// It wraps the internal state machine and exposes the control surface.
type Scanner struct {
	runtime *runtime.Scanner
	Name    string
}

type config struct {
	name        string
	condReader  ports.ConditionReader
	conditions  []domain.Condition
	runtimeOpts []runtime.ScannerOption
}

// Option defines a functional option for configuring the Scanner.
type Option func(*config)

// WithSettings sets the timing and repetition parameters.
func WithSettings(settings domain.ScanSettings) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithSettings(settings))
	}
}

// WithConditions checks every sample against conds, using reader to fetch the
// monitored values.
func WithConditions(reader ports.ConditionReader, conds ...domain.Condition) Option {
	return func(c *config) {
		c.condReader = reader
		c.conditions = append(c.conditions, conds...)
	}
}

// WithActions registers lifecycle action executors.
func WithActions(executors ...*action.Executor) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithActions(executors...))
	}
}

// WithController replaces the in-process pause/abort handle, e.g. with a
// Redis-backed one that other processes can flip.
func WithController(ctrl ports.Controller) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithController(ctrl))
	}
}

// WithLocker holds a distributed lock on key for the duration of every scan.
// An empty key defaults to "scan:<name>".
func WithLocker(l ports.DistributedLocker, key string, ttl time.Duration) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLocker(l, key, ttl))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithClock replaces the clock behind settle, retry and poll delays.
func WithClock(clk clock.Clock) Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithClock(clk))
	}
}

// WithName labels the scan in logs and lock keys.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithStepBack enables step-back recovery after Retry-policy failures.
func WithStepBack() Option {
	return func(c *config) {
		c.runtimeOpts = append(c.runtimeOpts, runtime.WithStepBack())
	}
}

// New validates the collaborators and options and builds a Scanner.
// Every validation failure matches ErrConfiguration.
func New(pos positioner.Positioner, writer ports.Writer, reader ports.Reader, proc processor.Processor, opts ...Option) (*Scanner, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	runtimeOpts := append([]runtime.ScannerOption(nil), cfg.runtimeOpts...)
	if len(cfg.conditions) > 0 || cfg.condReader != nil {
		validator, err := condition.NewValidator(cfg.conditions...)
		if err != nil {
			return nil, err
		}
		runtimeOpts = append(runtimeOpts, runtime.WithConditions(cfg.condReader, validator))
	}
	if cfg.name != "" {
		runtimeOpts = append(runtimeOpts, runtime.WithName(cfg.name))
	}

	rt, err := runtime.NewScanner(pos, writer, reader, proc, runtimeOpts...)
	if err != nil {
		return nil, err
	}
	return &Scanner{runtime: rt, Name: cfg.name}, nil
}

// DiscreteScan runs the scan to completion and returns the processor's data.
func (s *Scanner) DiscreteScan(ctx context.Context) (any, error) {
	return s.runtime.DiscreteScan(ctx)
}

// Abort stops the scan at the next position boundary, or within one poll
// interval when it is paused.
func (s *Scanner) Abort() error {
	return s.runtime.Abort(context.Background())
}

// Pause holds the scan at the next position boundary.
func (s *Scanner) Pause() error {
	return s.runtime.Pause(context.Background())
}

// Resume releases a paused scan.
func (s *Scanner) Resume() error {
	return s.runtime.Resume(context.Background())
}

// Progress returns the recorded positions and the total. Errors from a remote
// controller read as zero progress.
func (s *Scanner) Progress() (completed, total int) {
	completed, total, err := s.runtime.Progress(context.Background())
	if err != nil {
		return 0, 0
	}
	return completed, total
}

// State returns the current phase of the scan.
func (s *Scanner) State() domain.ScanState {
	return s.runtime.State()
}

// Running reports whether DiscreteScan is executing.
func (s *Scanner) Running() bool {
	return s.runtime.Running()
}

// Controller returns the pause/abort handle, for wiring remote control surfaces.
func (s *Scanner) Controller() ports.Controller {
	return s.runtime.Controller()
}

// Settings returns the resolved scan settings.
func (s *Scanner) Settings() domain.ScanSettings {
	return s.runtime.Settings()
}
