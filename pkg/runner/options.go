package runner

import "log/slog"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithSignals maps SIGINT and SIGTERM to interrupts.
func WithSignals() Option {
	return func(r *Runner) {
		r.signals = true
	}
}

// WithInterruptSource sets a channel whose values count as interrupts.
func WithInterruptSource(ch <-chan struct{}) Option {
	return func(r *Runner) {
		r.interrupts = ch
	}
}
