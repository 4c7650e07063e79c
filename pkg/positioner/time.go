package positioner

import (
	"context"
	"fmt"
	"iter"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
)

// Smoothing is the weight of the previous drift estimate in the Time
// positioner's exponential smoothing.
const Smoothing = 0.95

// TimeOptions configure a Time positioner.
type TimeOptions struct {
	// Interval is the target period between two ticks.
	Interval time.Duration
	// NIntervals is the number of ticks.
	NIntervals int
	// Tolerance is how much a cycle may exceed Interval before the sequence
	// fails. Zero means one Interval.
	Tolerance time.Duration
	// Clock defaults to the real clock.
	Clock clock.Clock
}

// Time fires NIntervals ticks at a fixed cadence. Its positions carry only
// the tick index. The sleep before each tick is shortened by a smoothed
// estimate of the scheduling overshoot, so the cadence does not drift.
type Time struct {
	interval  time.Duration
	n         int
	tolerance time.Duration
	clock     clock.Clock
}

// NewTime validates opts and builds a Time positioner.
func NewTime(opts TimeOptions) (*Time, error) {
	if opts.Interval <= 0 {
		return nil, domain.Configf("time_interval", "must be positive, got %s", opts.Interval)
	}
	if opts.NIntervals <= 0 {
		return nil, domain.Configf("n_intervals", "must be positive, got %d", opts.NIntervals)
	}
	if opts.Tolerance < 0 {
		return nil, domain.Configf("tolerance", "must not be negative, got %s", opts.Tolerance)
	}
	t := &Time{
		interval:  opts.Interval,
		n:         opts.NIntervals,
		tolerance: opts.Tolerance,
		clock:     opts.Clock,
	}
	if t.tolerance == 0 {
		t.tolerance = t.interval
	}
	if t.clock == nil {
		t.clock = clock.RealClock{}
	}
	return t, nil
}

func (t *Time) Len() int { return t.n }

// Positions yields {0}, {1}, ... The first tick fires immediately. Each
// following tick fails with domain.ErrIntervalOverrun if the consumer held
// the previous one longer than Interval plus Tolerance.
func (t *Time) Positions() iter.Seq2[domain.Position, error] {
	return t.PositionsContext(context.Background())
}

// PositionsContext is Positions with a cancellable wait between ticks.
// Cancelling ctx ends the sequence with context.Cause(ctx).
func (t *Time) PositionsContext(ctx context.Context) iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		var correction float64 // seconds
		tick := t.clock.Now()
		for i := range t.n {
			if i > 0 {
				elapsed := t.clock.Since(tick)
				if elapsed > t.interval+t.tolerance {
					yield(nil, fmt.Errorf("tick %d: cycle took %s, interval %s, tolerance %s: %w",
						i, elapsed, t.interval, t.tolerance, domain.ErrIntervalOverrun))
					return
				}
				wait := t.interval - elapsed - time.Duration(correction*float64(time.Second))
				if wait > 0 {
					if err := sleep(ctx, t.clock, wait); err != nil {
						yield(nil, fmt.Errorf("tick %d: %w", i, err))
						return
					}
				}
				now := t.clock.Now()
				overshoot := (now.Sub(tick) - t.interval).Seconds()
				correction = Smoothing*correction + (1-Smoothing)*(correction+overshoot)
				tick = now
			}
			if !yield(domain.Position{float64(i)}, nil) {
				return
			}
		}
	}
}
