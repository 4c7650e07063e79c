package domain

// ScanState is a phase of the scanner state machine.
type ScanState string

const (
	StateIdle           ScanState = "idle"
	StateInitializing   ScanState = "initializing"
	StatePositioning    ScanState = "positioning"
	StateSettling       ScanState = "settling"
	StateBeforeMeasure  ScanState = "before_measure"
	StateMeasuring      ScanState = "measuring"
	StateValidating     ScanState = "validating"
	StateAfterMeasure   ScanState = "after_measure"
	StateProgressReport ScanState = "progress_report"
	StatePaused         ScanState = "paused"
	StateFinalizing     ScanState = "finalizing"
	StateCompleted      ScanState = "completed" // Sink state, result available
	StateAborted        ScanState = "aborted"   // Sink state, cooperative cancellation
	StateFailed         ScanState = "failed"    // Sink state, fatal error
)

// Terminal reports whether no further transitions can happen from s.
func (s ScanState) Terminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

// Hook names a point of the scan lifecycle where actions can run.
type Hook string

const (
	HookInitialization    Hook = "initialization"
	HookBeforeMove        Hook = "before_move"
	HookAfterMove         Hook = "after_move"
	HookBeforeMeasurement Hook = "before_measurement"
	HookAfterMeasurement  Hook = "after_measurement"
	HookFinalization      Hook = "finalization"
)

// Hooks lists every lifecycle hook in execution order.
var Hooks = []Hook{
	HookInitialization,
	HookBeforeMove,
	HookAfterMove,
	HookBeforeMeasurement,
	HookAfterMeasurement,
	HookFinalization,
}

// ParseHook maps a configuration key onto a Hook.
func ParseHook(s string) (Hook, error) {
	key := normalizeKey(s)
	for _, h := range Hooks {
		if normalizeKey(string(h)) == key {
			return h, nil
		}
	}
	return "", &ConfigurationError{Field: "hook", Reason: "unknown lifecycle hook " + s}
}
