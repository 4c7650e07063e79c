package runtime

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/condition"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed scan lock survives a crashed holder.
const DefaultLockTTL = 10 * time.Minute

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithSettings replaces the scan settings. Unset fields keep their defaults.
func WithSettings(settings domain.ScanSettings) ScannerOption {
	return func(s *Scanner) {
		s.settings = settings
	}
}

// WithConditions validates every sample against the values returned by reader.
func WithConditions(reader ports.ConditionReader, validator *condition.Validator) ScannerOption {
	return func(s *Scanner) {
		s.condReader = reader
		s.validator = validator
	}
}

// WithActions registers lifecycle executors. Several executors may share a hook;
// they run in registration order.
func WithActions(executors ...*action.Executor) ScannerOption {
	return func(s *Scanner) {
		for _, e := range executors {
			if e == nil {
				continue
			}
			s.executors[e.Hook()] = append(s.executors[e.Hook()], e)
		}
	}
}

// WithController replaces the in-process pause/abort handle.
func WithController(c ports.Controller) ScannerOption {
	return func(s *Scanner) {
		s.control = c
	}
}

// WithLocker makes the scan hold key on l for its whole duration.
func WithLocker(l ports.DistributedLocker, key string, ttl time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.locker = l
		s.lockKey = key
		s.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) ScannerOption {
	return func(s *Scanner) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithClock replaces the clock used for every delay of the scan.
func WithClock(c clock.Clock) ScannerOption {
	return func(s *Scanner) {
		s.clock = c
	}
}

// WithName labels log lines and the default lock key.
func WithName(name string) ScannerOption {
	return func(s *Scanner) {
		s.name = name
	}
}

// WithStepBack enables step-back recovery: when a Retry-policy condition
// fails, the previously recorded position is discarded and measured again
// before the current position is retried. The processor must implement
// processor.Discarder.
func WithStepBack() ScannerOption {
	return func(s *Scanner) {
		s.stepBack = true
	}
}
