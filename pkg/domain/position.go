package domain

import (
	"fmt"
	"strings"
)

// Position is an ordered tuple of coordinates, one per writable axis.
type Position []float64

// Clone returns a copy of p that shares no memory with it.
func (p Position) Clone() Position {
	if p == nil {
		return nil
	}
	out := make(Position, len(p))
	copy(out, p)
	return out
}

// Concat returns a new Position holding p followed by other.
func (p Position) Concat(other Position) Position {
	out := make(Position, 0, len(p)+len(other))
	out = append(out, p...)
	return append(out, other...)
}

// Equal reports whether both positions have the same axes within tol.
func (p Position) Equal(other Position, tol float64) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		d := p[i] - other[i]
		if d < -tol || d > tol {
			return false
		}
	}
	return true
}

func (p Position) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Measurement holds the values of the readable channels at one position,
// in the order the reader reports them.
type Measurement []any

// Sample is what the scanner hands to a data processor for one position:
// a single Measurement, or a []Measurement when more than one repetition
// was configured.
type Sample any
