package domain

import "time"

// Default timing values used when a ScanSettings field is left at zero.
const (
	DefaultNMeasurements = 1
	DefaultMaxRetries    = 3
	DefaultRetryDelay    = time.Second
	DefaultPollInterval  = time.Second
	DefaultWriteTimeout  = 10 * time.Second
)

// ProgressFunc is called with the number of completed positions and the total.
type ProgressFunc func(completed, total int)

// ScanSettings holds the timing and repetition parameters of one scan.
// It is passed by value and never mutated once a scanner is built.
type ScanSettings struct {
	// MeasurementInterval is the pause between repeated acquisitions at one position.
	MeasurementInterval time.Duration
	// NMeasurements is how many samples are taken at each position.
	NMeasurements int
	// WriteTimeout bounds each position write.
	WriteTimeout time.Duration
	// SettlingTime is waited after each write, before sampling.
	SettlingTime time.Duration

	// MaxRetries bounds the re-acquisitions after Retry-policy condition failures.
	// Zero selects DefaultMaxRetries; a negative value disables retrying.
	MaxRetries int
	// RetryDelay is waited before each re-acquisition.
	RetryDelay time.Duration
	// PollInterval is the cadence of the pause wait loop.
	PollInterval time.Duration

	Progress ProgressFunc
}

// DefaultScanSettings returns the settings used when none are configured.
func DefaultScanSettings() ScanSettings {
	return ScanSettings{}.WithDefaults()
}

// WithDefaults returns a copy of s with unset fields resolved.
func (s ScanSettings) WithDefaults() ScanSettings {
	if s.NMeasurements <= 0 {
		s.NMeasurements = DefaultNMeasurements
	}
	if s.MaxRetries < 0 {
		s.MaxRetries = 0
	} else if s.MaxRetries == 0 {
		s.MaxRetries = DefaultMaxRetries
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = DefaultRetryDelay
	}
	if s.PollInterval <= 0 {
		s.PollInterval = DefaultPollInterval
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.MeasurementInterval < 0 {
		s.MeasurementInterval = 0
	}
	if s.SettlingTime < 0 {
		s.SettlingTime = 0
	}
	return s
}
