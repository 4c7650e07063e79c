package domain

import (
	"context"
	"time"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	ScanID    string    `json:"scan_id"`
}

// StateEvent reports a transition of the scanner state machine.
type StateEvent struct {
	EventBase
	From ScanState `json:"from"`
	To   ScanState `json:"to"`
}

// PositionEvent reports a position whose data has been recorded.
type PositionEvent struct {
	EventBase
	Index    int           `json:"index"`
	Total    int           `json:"total"`
	Position Position      `json:"position"`
	Duration time.Duration `json:"duration"`
	Attempts int           `json:"attempts"`
}

// RetryEvent reports a discarded sample.
type RetryEvent struct {
	EventBase
	Index   int   `json:"index"`
	Attempt int   `json:"attempt"`
	Cause   error `json:"-"`
}

// CompleteEvent reports the end of a scan, successful or not.
type CompleteEvent struct {
	EventBase
	State    ScanState     `json:"state"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// LifecycleHooks defines callbacks for scanner observability.
// Any of them may be nil.
type LifecycleHooks struct {
	OnStateChange func(context.Context, *StateEvent)
	OnPosition    func(context.Context, *PositionEvent)
	OnRetry       func(context.Context, *RetryEvent)
	OnComplete    func(context.Context, *CompleteEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStateChange: chain(h.OnStateChange, other.OnStateChange),
		OnPosition:    chain(h.OnPosition, other.OnPosition),
		OnRetry:       chain(h.OnRetry, other.OnRetry),
		OnComplete:    chain(h.OnComplete, other.OnComplete),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
