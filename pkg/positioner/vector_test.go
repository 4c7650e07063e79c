package positioner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/pkg/domain"
)

func TestVector(t *testing.T) {
	v, err := NewVector(VectorOptions{
		Positions: [][]float64{{1, 1}, {2, 2}},
		Passes:    2,
		Offsets:   []float64{0, 10},
	})
	require.NoError(t, err)

	got, err := Collect(v)
	require.NoError(t, err)
	assert.Equal(t, []domain.Position{{1, 11}, {2, 12}, {1, 11}, {2, 12}}, got)
	assert.Equal(t, 4, v.Len())
}

func TestVector_YieldsCopies(t *testing.T) {
	src := [][]float64{{1}, {2}}
	v, err := NewVector(VectorOptions{Positions: src})
	require.NoError(t, err)

	for pos := range v.Positions() {
		pos[0] = 99
	}
	assert.Equal(t, [][]float64{{1}, {2}}, src)
	got, err := Collect(v)
	require.NoError(t, err)
	assert.Equal(t, []domain.Position{{1}, {2}}, got)
}

func TestVector_Validation(t *testing.T) {
	_, err := NewVector(VectorOptions{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewVector(VectorOptions{Positions: [][]float64{{1, 2}, {3}}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestZigZagVector_Length(t *testing.T) {
	for n := 2; n <= 5; n++ {
		for passes := 1; passes <= 4; passes++ {
			positions := make([][]float64, n)
			for i := range positions {
				positions[i] = []float64{float64(i)}
			}
			z, err := NewZigZagVector(VectorOptions{Positions: positions, Passes: passes})
			require.NoError(t, err)

			got := values1D(t, z)
			want := n + (passes-1)*(n-1)
			assert.Len(t, got, want, "n=%d passes=%d", n, passes)
			assert.Equal(t, want, z.Len())

			for i := 1; i < len(got); i++ {
				assert.NotEqual(t, got[i-1], got[i], "extreme point repeated at %d", i)
			}
		}
	}
}

func TestZigZagVector_Order(t *testing.T) {
	z, err := NewZigZagVector(VectorOptions{Positions: [][]float64{{1}, {2}, {3}}, Passes: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 2, 1, 2, 3}, values1D(t, z))
}
