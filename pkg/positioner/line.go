package positioner

import (
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// LineOptions configure Line and ZigZagLine.
// Exactly one of NSteps and StepSize must be set.
type LineOptions struct {
	Start []float64
	End   []float64

	// NSteps divides every axis into NSteps equal intervals (NSteps+1 points).
	NSteps int
	// StepSize gives the increment per axis; all axes must yield the same
	// number of whole steps.
	StepSize []float64

	// Passes replays the line. Zero means one pass.
	Passes int
	// Offsets are added to Start and End before generation.
	Offsets []float64
}

// Line moves every axis at once from Start to End in equal steps.
type Line struct {
	start  []float64
	step   []float64
	end    []float64
	nSteps int
	passes int
	exact  bool // last point is End (NSteps given), not Start+n*step
}

// NewLine validates opts and builds a Line.
func NewLine(opts LineOptions) (*Line, error) {
	if len(opts.Start) == 0 {
		return nil, domain.Configf("start", "at least one axis is required")
	}
	if len(opts.End) != len(opts.Start) {
		return nil, domain.Configf("end", "expected %d axes, got %d", len(opts.Start), len(opts.End))
	}
	if err := checkFinite("start", opts.Start); err != nil {
		return nil, err
	}
	if err := checkFinite("end", opts.End); err != nil {
		return nil, err
	}
	passes, err := resolvePasses(opts.Passes)
	if err != nil {
		return nil, err
	}
	start, end, err := withOffsets(opts.Start, opts.End, opts.Offsets)
	if err != nil {
		return nil, err
	}

	l := &Line{start: start, end: end, passes: passes, step: make([]float64, len(start))}

	switch {
	case opts.NSteps != 0 && len(opts.StepSize) != 0:
		return nil, domain.Configf("n_steps", "n_steps and step_size are mutually exclusive")
	case opts.NSteps < 0:
		return nil, domain.Configf("n_steps", "must be positive, got %d", opts.NSteps)
	case opts.NSteps > 0:
		l.nSteps = opts.NSteps
		l.exact = true
		for i := range start {
			l.step[i] = (end[i] - start[i]) / float64(opts.NSteps)
		}
	case len(opts.StepSize) != 0:
		if len(opts.StepSize) != len(start) {
			return nil, domain.Configf("step_size", "expected %d axes, got %d", len(start), len(opts.StepSize))
		}
		l.nSteps = -1
		for i := range start {
			n, err := stepsFromSize("step_size", start[i], end[i], opts.StepSize[i])
			if err != nil {
				return nil, err
			}
			if start[i] == end[i] {
				continue
			}
			if l.nSteps >= 0 && n != l.nSteps {
				return nil, domain.Configf("step_size", "axis %d gives %d steps, previous axes gave %d", i, n, l.nSteps)
			}
			l.nSteps = n
			l.step[i] = opts.StepSize[i]
		}
		if l.nSteps < 0 {
			l.nSteps = 0
		}
	default:
		return nil, domain.Configf("n_steps", "one of n_steps or step_size is required")
	}
	return l, nil
}

// Len returns the number of positions over all passes.
func (l *Line) Len() int { return (l.nSteps + 1) * l.passes }

// Positions yields the line Passes times, always from Start to End.
func (l *Line) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		for range l.passes {
			for i := 0; i <= l.nSteps; i++ {
				if !yield(l.at(i), nil) {
					return
				}
			}
		}
	}
}

func (l *Line) at(i int) domain.Position {
	p := make(domain.Position, len(l.start))
	for k := range p {
		if l.exact && i == l.nSteps {
			p[k] = l.end[k]
			continue
		}
		p[k] = l.start[k] + float64(i)*l.step[k]
	}
	return p
}

// ZigZagLine is a Line that reverses direction on every pass. The turning
// point is visited once.
type ZigZagLine struct {
	line *Line
}

// NewZigZagLine validates opts and builds a ZigZagLine.
func NewZigZagLine(opts LineOptions) (*ZigZagLine, error) {
	l, err := NewLine(opts)
	if err != nil {
		return nil, err
	}
	return &ZigZagLine{line: l}, nil
}

// Len returns (n+1) + (passes-1)*n for n steps.
func (z *ZigZagLine) Len() int {
	n := z.line.nSteps
	return n + 1 + (z.line.passes-1)*n
}

func (z *ZigZagLine) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		n := z.line.nSteps
		for pass := range z.line.passes {
			first := 0
			if pass > 0 {
				first = 1
			}
			for i := first; i <= n; i++ {
				idx := i
				if pass%2 == 1 {
					idx = n - i
				}
				if !yield(z.line.at(idx), nil) {
					return
				}
			}
		}
	}
}
