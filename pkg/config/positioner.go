package config

import (
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/positioner"
)

// PositionerConfig declares one positioner. Which fields apply depends on Type.
type PositionerConfig struct {
	// Type is one of line, zigzag_line, vector, zigzag_vector, area,
	// zigzag_area, serial, static or time.
	Type  string   `yaml:"type" json:"type" mapstructure:"type"`
	Knobs []string `yaml:"knobs" json:"knobs" mapstructure:"knobs"`

	Start    []float64 `yaml:"start" json:"start" mapstructure:"start"`
	End      []float64 `yaml:"end" json:"end" mapstructure:"end"`
	NSteps   []int     `yaml:"n_steps" json:"n_steps" mapstructure:"n_steps"`
	StepSize []float64 `yaml:"step_size" json:"step_size" mapstructure:"step_size"`

	Positions [][]float64 `yaml:"positions" json:"positions" mapstructure:"positions"`
	Initial   []float64   `yaml:"initial" json:"initial" mapstructure:"initial"`

	Passes  int       `yaml:"passes" json:"passes" mapstructure:"passes"`
	Offsets []float64 `yaml:"offsets" json:"offsets" mapstructure:"offsets"`

	// Count is the number of Static repetitions.
	Count int `yaml:"count" json:"count" mapstructure:"count"`

	Interval   time.Duration `yaml:"interval" json:"interval" mapstructure:"interval"`
	NIntervals int           `yaml:"n_intervals" json:"n_intervals" mapstructure:"n_intervals"`
	Tolerance  time.Duration `yaml:"tolerance" json:"tolerance" mapstructure:"tolerance"`
}

// Build creates the positioner. clk is used by the time positioner only.
func (p PositionerConfig) Build(clk clock.Clock) (positioner.Positioner, error) {
	switch p.Type {
	case "line", "zigzag_line":
		opts := positioner.LineOptions{Start: p.Start, End: p.End, StepSize: p.StepSize, Passes: p.Passes, Offsets: p.Offsets}
		if len(p.NSteps) > 0 {
			n, err := p.uniformSteps()
			if err != nil {
				return nil, err
			}
			opts.NSteps = n
		}
		if p.Type == "line" {
			return positioner.NewLine(opts)
		}
		return positioner.NewZigZagLine(opts)

	case "vector", "zigzag_vector":
		opts := positioner.VectorOptions{Positions: p.Positions, Passes: p.Passes, Offsets: p.Offsets}
		if p.Type == "vector" {
			return positioner.NewVector(opts)
		}
		return positioner.NewZigZagVector(opts)

	case "area", "zigzag_area":
		opts := positioner.AreaOptions{Start: p.Start, End: p.End, NSteps: p.NSteps, StepSize: p.StepSize, Passes: p.Passes, Offsets: p.Offsets}
		if p.Type == "area" {
			return positioner.NewArea(opts)
		}
		return positioner.NewZigZagArea(opts)

	case "serial":
		return positioner.NewSerial(positioner.SerialOptions{Positions: p.Positions, Initial: p.Initial, Passes: p.Passes, Offsets: p.Offsets})

	case "static":
		return positioner.NewStatic(p.Count)

	case "time":
		return positioner.NewTime(positioner.TimeOptions{Interval: p.Interval, NIntervals: p.NIntervals, Tolerance: p.Tolerance, Clock: clk})
	}
	return nil, domain.Configf("type", "unknown positioner type %q", p.Type)
}

// uniformSteps accepts a single n_steps value, or one per axis as long as
// they agree.
func (p PositionerConfig) uniformSteps() (int, error) {
	n := p.NSteps[0]
	for _, v := range p.NSteps[1:] {
		if v != n {
			return 0, domain.Configf("n_steps", "line axes must share n_steps, got %v", p.NSteps)
		}
	}
	return n, nil
}

// axes returns the number of writable axes the positioner produces.
func (p PositionerConfig) axes() int {
	switch p.Type {
	case "static", "time":
		return 0
	case "vector", "zigzag_vector":
		if len(p.Positions) > 0 {
			return len(p.Positions[0])
		}
		return 0
	case "serial":
		return len(p.Positions)
	}
	return len(p.Start)
}

// Positioner builds every declared positioner and combines them.
func (c *ScanConfig) Positioner(clk clock.Clock) (positioner.Positioner, error) {
	children := make([]positioner.Positioner, 0, len(c.Positioners))
	for i, pc := range c.Positioners {
		if want := pc.axes(); len(pc.Knobs) != want {
			return nil, domain.Configf(fmt.Sprintf("positioners[%d].knobs", i), "expected %d knob names, got %d", want, len(pc.Knobs))
		}
		p, err := pc.Build(clk)
		if err != nil {
			return nil, fmt.Errorf("positioners[%d]: %w", i, err)
		}
		children = append(children, p)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return positioner.NewCompound(children...)
}
