package positioner

import (
	"context"
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// Compound is the cartesian product of its children. Child 0 is the most
// significant (slowest); each yielded position is the concatenation of one
// position from every child. A single child is passed through unchanged.
type Compound struct {
	children []Positioner
}

// NewCompound builds a Compound over children.
func NewCompound(children ...Positioner) (*Compound, error) {
	if len(children) == 0 {
		return nil, domain.Configf("positioners", "at least one positioner is required")
	}
	for i, c := range children {
		if c == nil {
			return nil, domain.Configf("positioners", "positioner %d is nil", i)
		}
	}
	return &Compound{children: append([]Positioner(nil), children...)}, nil
}

// Len returns the product of the children lengths, or -1 if one of them is
// unknown.
func (c *Compound) Len() int {
	n := 1
	for _, child := range c.children {
		s, ok := child.(Sized)
		if !ok {
			return -1
		}
		l := s.Len()
		if l < 0 {
			return -1
		}
		n *= l
	}
	return n
}

func (c *Compound) Positions() iter.Seq2[domain.Position, error] {
	return c.PositionsContext(context.Background())
}

// PositionsContext binds every child traversal to ctx.
func (c *Compound) PositionsContext(ctx context.Context) iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		c.walk(ctx, 0, nil, yield)
	}
}

// walk enumerates child depth with a fresh traversal for every prefix.
// It returns false once the consumer stopped or an error was yielded.
func (c *Compound) walk(ctx context.Context, depth int, prefix domain.Position, yield func(domain.Position, error) bool) bool {
	for pos, err := range Iterate(ctx, c.children[depth]) {
		if err != nil {
			yield(nil, err)
			return false
		}
		combined := prefix.Concat(pos)
		if depth == len(c.children)-1 {
			if !yield(combined, nil) {
				return false
			}
			continue
		}
		if !c.walk(ctx, depth+1, combined, yield) {
			return false
		}
	}
	return true
}
