// Package processor accumulates scan results in traversal order.
package processor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/sweep/pkg/domain"
)

// ErrEmpty is returned by DiscardLast when nothing has been recorded.
var ErrEmpty = errors.New("no recorded entry to discard")

// Processor receives every accepted sample, in the order the positioner
// produced the positions.
type Processor interface {
	Process(pos domain.Position, sample domain.Sample) error
	// Data returns the accumulated result.
	Data() any
}

// Discarder is implemented by processors that can drop their last entry.
// The scanner relies on it for step-back recovery.
type Discarder interface {
	DiscardLast() error
}

// Pairs keeps positions and samples in two parallel lists.
type Pairs struct {
	mu        sync.RWMutex
	positions []domain.Position
	samples   []domain.Sample
}

// PairsData is the result shape of Pairs.
type PairsData struct {
	Positions []domain.Position `json:"positions" yaml:"positions"`
	Samples   []domain.Sample   `json:"samples" yaml:"samples"`
}

// NewPairs creates an empty Pairs processor.
func NewPairs() *Pairs {
	return &Pairs{}
}

func (p *Pairs) Process(pos domain.Position, sample domain.Sample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions = append(p.positions, pos.Clone())
	p.samples = append(p.samples, sample)
	return nil
}

// Data returns a PairsData snapshot.
func (p *Pairs) Data() any {
	return p.Snapshot()
}

// Snapshot returns copies of both lists.
func (p *Pairs) Snapshot() PairsData {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PairsData{
		Positions: append([]domain.Position(nil), p.positions...),
		Samples:   append([]domain.Sample(nil), p.samples...),
	}
}

func (p *Pairs) DiscardLast() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.samples) == 0 {
		return ErrEmpty
	}
	p.positions = p.positions[:len(p.positions)-1]
	p.samples = p.samples[:len(p.samples)-1]
	return nil
}

// ByChannel stores one map per position, keyed by channel identifier.
// With repeated measurements every channel maps to the list of its values.
type ByChannel struct {
	mu       sync.RWMutex
	channels []string
	rows     []map[string]any
}

// NewByChannel creates a processor for the readable channels ids, in the
// order the reader returns their values.
func NewByChannel(ids ...string) (*ByChannel, error) {
	if len(ids) == 0 {
		return nil, domain.Configf("channels", "at least one channel id is required")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			return nil, domain.Configf("channels", "channel id %q is empty or duplicated", id)
		}
		seen[id] = true
	}
	return &ByChannel{channels: append([]string(nil), ids...)}, nil
}

func (b *ByChannel) Process(pos domain.Position, sample domain.Sample) error {
	row := make(map[string]any, len(b.channels))
	switch s := sample.(type) {
	case domain.Measurement:
		if err := b.fill(row, s, nil); err != nil {
			return err
		}
	case []domain.Measurement:
		lists := make(map[string][]any, len(b.channels))
		for _, m := range s {
			if err := b.fill(nil, m, lists); err != nil {
				return err
			}
		}
		for k, v := range lists {
			row[k] = v
		}
	default:
		return fmt.Errorf("unsupported sample type %T", sample)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = append(b.rows, row)
	return nil
}

func (b *ByChannel) fill(row map[string]any, m domain.Measurement, lists map[string][]any) error {
	if len(m) != len(b.channels) {
		return fmt.Errorf("measurement has %d values for %d channels", len(m), len(b.channels))
	}
	for i, id := range b.channels {
		if lists != nil {
			lists[id] = append(lists[id], m[i])
			continue
		}
		row[id] = m[i]
	}
	return nil
}

// Data returns the rows as []map[string]any.
func (b *ByChannel) Data() any {
	return b.Rows()
}

// Rows returns a copy of the recorded rows.
func (b *ByChannel) Rows() []map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]map[string]any(nil), b.rows...)
}

// Channels returns the channel identifiers.
func (b *ByChannel) Channels() []string {
	return append([]string(nil), b.channels...)
}

func (b *ByChannel) DiscardLast() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.rows) == 0 {
		return ErrEmpty
	}
	b.rows = b.rows[:len(b.rows)-1]
	return nil
}

// Callback forwards every entry to a function and keeps nothing.
type Callback struct {
	fn func(pos domain.Position, sample domain.Sample) error
	n  int
}

// NewCallback wraps fn as a Processor. Data returns the number of entries.
func NewCallback(fn func(pos domain.Position, sample domain.Sample) error) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Process(pos domain.Position, sample domain.Sample) error {
	if err := c.fn(pos, sample); err != nil {
		return err
	}
	c.n++
	return nil
}

func (c *Callback) Data() any { return c.n }
