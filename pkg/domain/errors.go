package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("invalid scan configuration")

	// ErrActuationTimeout is returned when a knob did not reach its target in time.
	// Writers return it (or a context deadline error) to report a timeout.
	ErrActuationTimeout = errors.New("actuation timeout")

	// ErrRetryExhausted is returned when Retry-policy conditions kept failing.
	ErrRetryExhausted = errors.New("acquisition retries exhausted")

	// ErrConditionAbort is returned when an Abort-policy condition failed.
	ErrConditionAbort = errors.New("condition abort")

	// ErrUserAbort is returned when the scan was cancelled cooperatively.
	ErrUserAbort = errors.New("scan aborted")

	// ErrIntervalOverrun is returned by the Time positioner when a cycle
	// took longer than its interval plus tolerance.
	ErrIntervalOverrun = errors.New("time interval overrun")
)

// ConfigurationError reports a bad constructor argument.
// It is raised before any device is touched.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ActuationTimeout reports a write that did not settle within Timeout.
type ActuationTimeout struct {
	Position Position
	Timeout  time.Duration
	Cause    error
}

func (e *ActuationTimeout) Error() string {
	msg := fmt.Sprintf("write %s did not reach tolerance within %s", e.Position, e.Timeout)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ActuationTimeout) Is(target error) bool { return target == ErrActuationTimeout }
func (e *ActuationTimeout) Unwrap() error        { return e.Cause }

// ConditionError describes one condition that did not hold.
type ConditionError struct {
	Channel   string
	Expected  any
	Actual    any
	Tolerance float64
	Policy    Policy
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q failed (%s): expected %v, got %v, tolerance %g",
		e.Channel, e.Policy, e.Expected, e.Actual, e.Tolerance)
}

// Is matches ErrConditionAbort for Abort-policy failures.
func (e *ConditionError) Is(target error) bool {
	return target == ErrConditionAbort && e.Policy == PolicyAbort
}

// RetryExhaustedError reports a position whose samples never validated.
type RetryExhaustedError struct {
	Position Position
	Attempts int
	Last     *ConditionError
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("position %s: %d acquisitions rejected: %v", e.Position, e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Is(target error) bool { return target == ErrRetryExhausted }
func (e *RetryExhaustedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}
	return e.Last
}

// AbortError reports a cooperative cancellation and how far the scan got.
type AbortError struct {
	Completed int
	Total     int
	Cause     error
}

func (e *AbortError) Error() string {
	msg := fmt.Sprintf("scan aborted after %d/%d positions", e.Completed, e.Total)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AbortError) Is(target error) bool { return target == ErrUserAbort }
func (e *AbortError) Unwrap() error        { return e.Cause }

// ActionError wraps the failure of a lifecycle action.
type ActionError struct {
	Hook   Hook
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s action %q failed: %v", e.Hook, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err (or any error in its chain) is a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsUserAbort reports whether err (or any error in its chain) is a cooperative cancellation.
func IsUserAbort(err error) bool { return errors.Is(err, ErrUserAbort) }
