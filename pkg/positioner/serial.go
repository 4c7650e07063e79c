package positioner

import (
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// SerialOptions configure a Serial positioner.
type SerialOptions struct {
	// Positions holds, for every axis, the values that axis visits.
	// Axes may have different numbers of values.
	Positions [][]float64
	// Initial is the value every axis holds while another axis moves.
	Initial []float64
	Passes  int
	// Offsets are added to Initial and to every axis value.
	Offsets []float64
}

// Serial varies one axis at a time while the others hold their initial
// value. After its last value an axis goes back to its initial value before
// the next axis moves, so the length is the sum of the per-axis counts.
type Serial struct {
	values  [][]float64
	initial domain.Position
	passes  int
}

// NewSerial validates opts and builds a Serial positioner.
func NewSerial(opts SerialOptions) (*Serial, error) {
	axes := len(opts.Initial)
	if axes == 0 {
		return nil, domain.Configf("initial_positions", "at least one axis is required")
	}
	if len(opts.Positions) != axes {
		return nil, domain.Configf("positions", "expected values for %d axes, got %d", axes, len(opts.Positions))
	}
	if len(opts.Offsets) != 0 && len(opts.Offsets) != axes {
		return nil, domain.Configf("offsets", "expected %d values, got %d", axes, len(opts.Offsets))
	}
	if err := checkFinite("initial_positions", opts.Initial); err != nil {
		return nil, err
	}
	passes, err := resolvePasses(opts.Passes)
	if err != nil {
		return nil, err
	}

	s := &Serial{
		values:  make([][]float64, axes),
		initial: make(domain.Position, axes),
		passes:  passes,
	}
	copy(s.initial, opts.Initial)
	total := 0
	for k, axis := range opts.Positions {
		if err := checkFinite("positions", axis); err != nil {
			return nil, err
		}
		s.values[k] = append([]float64(nil), axis...)
		total += len(axis)
	}
	if total == 0 {
		return nil, domain.Configf("positions", "no axis has any value")
	}
	for k, o := range opts.Offsets {
		s.initial[k] += o
		for i := range s.values[k] {
			s.values[k][i] += o
		}
	}
	return s, nil
}

func (s *Serial) Len() int {
	n := 0
	for _, axis := range s.values {
		n += len(axis)
	}
	return n * s.passes
}

func (s *Serial) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		for range s.passes {
			for k, axis := range s.values {
				for _, v := range axis {
					p := s.initial.Clone()
					p[k] = v
					if !yield(p, nil) {
						return
					}
				}
			}
		}
	}
}
