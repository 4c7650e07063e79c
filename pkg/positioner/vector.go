package positioner

import (
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// VectorOptions configure Vector and ZigZagVector.
type VectorOptions struct {
	// Positions are visited in order; all must have the same number of axes.
	Positions [][]float64
	Passes    int
	// Offsets are added to every position.
	Offsets []float64
}

// Vector replays a list of caller supplied positions.
type Vector struct {
	positions []domain.Position
	passes    int
}

// NewVector validates opts and builds a Vector.
func NewVector(opts VectorOptions) (*Vector, error) {
	positions, passes, err := buildVectors(opts)
	if err != nil {
		return nil, err
	}
	return &Vector{positions: positions, passes: passes}, nil
}

func buildVectors(opts VectorOptions) ([]domain.Position, int, error) {
	if len(opts.Positions) == 0 {
		return nil, 0, domain.Configf("positions", "at least one position is required")
	}
	passes, err := resolvePasses(opts.Passes)
	if err != nil {
		return nil, 0, err
	}
	axes := len(opts.Positions[0])
	if axes == 0 {
		return nil, 0, domain.Configf("positions", "positions must have at least one axis")
	}
	if len(opts.Offsets) != 0 && len(opts.Offsets) != axes {
		return nil, 0, domain.Configf("offsets", "expected %d values, got %d", axes, len(opts.Offsets))
	}

	out := make([]domain.Position, len(opts.Positions))
	for i, src := range opts.Positions {
		if len(src) != axes {
			return nil, 0, domain.Configf("positions", "position %d has %d axes, expected %d", i, len(src), axes)
		}
		if err := checkFinite("positions", src); err != nil {
			return nil, 0, err
		}
		p := make(domain.Position, axes)
		copy(p, src)
		for k, o := range opts.Offsets {
			p[k] += o
		}
		out[i] = p
	}
	return out, passes, nil
}

func (v *Vector) Len() int { return len(v.positions) * v.passes }

func (v *Vector) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		for range v.passes {
			for _, p := range v.positions {
				if !yield(p.Clone(), nil) {
					return
				}
			}
		}
	}
}

// ZigZagVector walks the list forward, then backward, and so on. The
// turning point is not repeated between passes.
type ZigZagVector struct {
	positions []domain.Position
	passes    int
}

// NewZigZagVector validates opts and builds a ZigZagVector.
func NewZigZagVector(opts VectorOptions) (*ZigZagVector, error) {
	positions, passes, err := buildVectors(opts)
	if err != nil {
		return nil, err
	}
	return &ZigZagVector{positions: positions, passes: passes}, nil
}

// Len returns n + (passes-1)*(n-1).
func (z *ZigZagVector) Len() int {
	n := len(z.positions)
	return n + (z.passes-1)*(n-1)
}

func (z *ZigZagVector) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		n := len(z.positions)
		for pass := range z.passes {
			first := 0
			if pass > 0 {
				first = 1
			}
			for i := first; i < n; i++ {
				idx := i
				if pass%2 == 1 {
					idx = n - 1 - i
				}
				if !yield(z.positions[idx].Clone(), nil) {
					return
				}
			}
		}
	}
}
