package positioner

import (
	"iter"

	"github.com/aretw0/sweep/pkg/domain"
)

// Static issues n triggers without moving anything. Its positions have no
// axes, so a scan over it repeats the acquisition at the current position.
type Static struct {
	n int
}

// NewStatic builds a Static positioner with n triggers.
func NewStatic(n int) (*Static, error) {
	if n <= 0 {
		return nil, domain.Configf("n_images", "must be positive, got %d", n)
	}
	return &Static{n: n}, nil
}

func (s *Static) Len() int { return s.n }

func (s *Static) Positions() iter.Seq2[domain.Position, error] {
	return func(yield func(domain.Position, error) bool) {
		for range s.n {
			if !yield(domain.Position{}, nil) {
				return
			}
		}
	}
}
