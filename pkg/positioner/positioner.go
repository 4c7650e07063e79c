package positioner

import (
	"context"
	"iter"
	"math"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
)

// stepEpsilon absorbs float noise when deriving a step count from a step size,
// so that 0.3/0.1 yields 3 steps and not 2.
const stepEpsilon = 1e-9

// Positioner produces the ordered positions of a scan.
type Positioner interface {
	// Positions starts a new traversal. An error ends the sequence.
	Positions() iter.Seq2[domain.Position, error]
}

// ContextPositioner is implemented by positioners that wait between
// positions. The wait ends early, with an error, once ctx is done.
type ContextPositioner interface {
	Positioner
	PositionsContext(ctx context.Context) iter.Seq2[domain.Position, error]
}

// Iterate starts a traversal of p bound to ctx.
func Iterate(ctx context.Context, p Positioner) iter.Seq2[domain.Position, error] {
	if cp, ok := p.(ContextPositioner); ok {
		return cp.PositionsContext(ctx)
	}
	return p.Positions()
}

// Sized is implemented by positioners that know their length without
// enumerating. Len returns a negative value when the length is unknown.
type Sized interface {
	Len() int
}

// Count returns the number of positions p yields.
// It uses Len when available and falls back to a full enumeration.
func Count(p Positioner) (int, error) {
	if s, ok := p.(Sized); ok {
		if n := s.Len(); n >= 0 {
			return n, nil
		}
	}
	n := 0
	for _, err := range p.Positions() {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Collect enumerates p into a slice.
func Collect(p Positioner) ([]domain.Position, error) {
	var out []domain.Position
	for pos, err := range p.Positions() {
		if err != nil {
			return out, err
		}
		out = append(out, pos)
	}
	return out, nil
}

func resolvePasses(passes int) (int, error) {
	if passes < 0 {
		return 0, domain.Configf("passes", "must be positive, got %d", passes)
	}
	if passes == 0 {
		return 1, nil
	}
	return passes, nil
}

// withOffsets returns copies of start and end shifted by offsets.
func withOffsets(start, end, offsets []float64) ([]float64, []float64, error) {
	s := append([]float64(nil), start...)
	e := append([]float64(nil), end...)
	if len(offsets) == 0 {
		return s, e, nil
	}
	if len(offsets) != len(s) {
		return nil, nil, domain.Configf("offsets", "expected %d values, got %d", len(s), len(offsets))
	}
	for i, o := range offsets {
		s[i] += o
		e[i] += o
	}
	return s, e, nil
}

// stepsFromSize converts a step size into a whole number of steps.
func stepsFromSize(field string, start, end, size float64) (int, error) {
	if size == 0 {
		if start == end {
			return 0, nil
		}
		return 0, domain.Configf(field, "step size must not be zero")
	}
	n := (end - start) / size
	if n < 0 {
		return 0, domain.Configf(field, "step size %g points away from end %g", size, end)
	}
	return int(math.Floor(n + stepEpsilon)), nil
}

func checkFinite(field string, values []float64) error {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return domain.Configf(field, "value %g is not finite", v)
		}
	}
	return nil
}

// sleep waits d on clk or until ctx is done. A context that can never be
// cancelled uses clk.Sleep, which fake clocks turn into a step.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) error {
	if ctx.Done() == nil {
		clk.Sleep(d)
		return nil
	}
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C():
		return nil
	}
}
