package positioner

import (
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// AreaOptions configure Area and ZigZagArea.
// Exactly one of NSteps and StepSize must be set; both are per axis.
type AreaOptions struct {
	Start    []float64
	End      []float64
	NSteps   []int
	StepSize []float64
	Passes   int
	Offsets  []float64
}

// grid holds the values each axis takes.
type grid [][]float64

func buildGrid(opts AreaOptions) (grid, int, error) {
	axes := len(opts.Start)
	if axes == 0 {
		return nil, 0, domain.Configf("start", "at least one axis is required")
	}
	if len(opts.End) != axes {
		return nil, 0, domain.Configf("end", "expected %d axes, got %d", axes, len(opts.End))
	}
	if err := checkFinite("start", opts.Start); err != nil {
		return nil, 0, err
	}
	if err := checkFinite("end", opts.End); err != nil {
		return nil, 0, err
	}
	passes, err := resolvePasses(opts.Passes)
	if err != nil {
		return nil, 0, err
	}
	start, end, err := withOffsets(opts.Start, opts.End, opts.Offsets)
	if err != nil {
		return nil, 0, err
	}

	hasSteps, hasSize := len(opts.NSteps) != 0, len(opts.StepSize) != 0
	switch {
	case hasSteps && hasSize:
		return nil, 0, domain.Configf("n_steps", "n_steps and step_size are mutually exclusive")
	case !hasSteps && !hasSize:
		return nil, 0, domain.Configf("n_steps", "one of n_steps or step_size is required")
	case hasSteps && len(opts.NSteps) != axes:
		return nil, 0, domain.Configf("n_steps", "expected %d axes, got %d", axes, len(opts.NSteps))
	case hasSize && len(opts.StepSize) != axes:
		return nil, 0, domain.Configf("step_size", "expected %d axes, got %d", axes, len(opts.StepSize))
	}

	g := make(grid, axes)
	for k := range axes {
		var n int
		var step float64
		if hasSteps {
			n = opts.NSteps[k]
			if n < 0 {
				return nil, 0, domain.Configf("n_steps", "axis %d: must not be negative, got %d", k, n)
			}
			if n > 0 {
				step = (end[k] - start[k]) / float64(n)
			}
		} else {
			n, err = stepsFromSize("step_size", start[k], end[k], opts.StepSize[k])
			if err != nil {
				return nil, 0, err
			}
			step = opts.StepSize[k]
		}
		values := make([]float64, n+1)
		for i := range values {
			values[i] = start[k] + float64(i)*step
		}
		if hasSteps && n > 0 {
			values[n] = end[k]
		}
		g[k] = values
	}
	return g, passes, nil
}

func (g grid) size() int {
	n := 1
	for _, axis := range g {
		n *= len(axis)
	}
	return n
}

func (g grid) at(idx []int) domain.Position {
	p := make(domain.Position, len(g))
	for k, i := range idx {
		p[k] = g[k][i]
	}
	return p
}

// Area is an N-axis nested sweep. Axis 0 is the slowest: the inner axes
// complete a full sweep, restarting from their start value, before axis 0
// advances one step.
type Area struct {
	grid   grid
	passes int
}

// NewArea validates opts and builds an Area.
func NewArea(opts AreaOptions) (*Area, error) {
	g, passes, err := buildGrid(opts)
	if err != nil {
		return nil, err
	}
	return &Area{grid: g, passes: passes}, nil
}

func (a *Area) Len() int { return a.grid.size() * a.passes }

func (a *Area) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		for range a.passes {
			idx := make([]int, len(a.grid))
			for {
				if !yield(a.grid.at(idx), nil) {
					return
				}
				// odometer increment, last axis fastest
				k := len(idx) - 1
				for ; k >= 0; k-- {
					idx[k]++
					if idx[k] < len(a.grid[k]) {
						break
					}
					idx[k] = 0
				}
				if k < 0 {
					break
				}
			}
		}
	}
}

// ZigZagArea visits the same points as Area, but every axis reverses
// direction after completing a sweep instead of jumping back to its start.
// Consecutive points differ in exactly one axis. Further passes walk the
// path backwards without repeating the turning point.
type ZigZagArea struct {
	grid   grid
	passes int
}

// NewZigZagArea validates opts and builds a ZigZagArea.
func NewZigZagArea(opts AreaOptions) (*ZigZagArea, error) {
	g, passes, err := buildGrid(opts)
	if err != nil {
		return nil, err
	}
	return &ZigZagArea{grid: g, passes: passes}, nil
}

// Len returns size + (passes-1)*(size-1).
func (z *ZigZagArea) Len() int {
	n := z.grid.size()
	return n + (z.passes-1)*(n-1)
}

func (z *ZigZagArea) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		idx := make([]int, len(z.grid))
		dir := make([]int, len(z.grid))
		for k := range dir {
			dir[k] = 1
		}
		if !yield(z.grid.at(idx), nil) {
			return
		}
		// Reflected odometer: an axis that cannot move further flips its
		// direction and hands the move to the next slower axis. When no axis
		// can move, every direction has flipped, so the next pass simply
		// continues and retraces the path.
		for range z.passes {
			for {
				k := len(idx) - 1
				for ; k >= 0; k-- {
					next := idx[k] + dir[k]
					if next >= 0 && next < len(z.grid[k]) {
						idx[k] = next
						break
					}
					dir[k] = -dir[k]
				}
				if k < 0 {
					break
				}
				if !yield(z.grid.at(idx), nil) {
					return
				}
			}
		}
	}
}
