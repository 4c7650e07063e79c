package positioner

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/pkg/domain"
)

func areaOpts() AreaOptions {
	return AreaOptions{
		Start:  []float64{0, 0, 0},
		End:    []float64{1, 2, 3},
		NSteps: []int{1, 2, 3},
	}
}

func TestArea_OdometerOrder(t *testing.T) {
	a, err := NewArea(AreaOptions{Start: []float64{0, 10}, End: []float64{1, 12}, NSteps: []int{1, 2}})
	require.NoError(t, err)

	got, err := Collect(a)
	require.NoError(t, err)
	assert.Equal(t, []domain.Position{
		{0, 10}, {0, 11}, {0, 12},
		{1, 10}, {1, 11}, {1, 12},
	}, got)
}

func TestArea_ResetsInnerAxis(t *testing.T) {
	a, err := NewArea(areaOpts())
	require.NoError(t, err)

	got, err := Collect(a)
	require.NoError(t, err)
	require.Len(t, got, 2*3*4)
	for i := 1; i < len(got); i++ {
		if got[i][0] != got[i-1][0] {
			// axis 0 advanced: inner axes are back at their start
			assert.Equal(t, 0.0, got[i][1])
			assert.Equal(t, 0.0, got[i][2])
		}
	}
}

func TestZigZagArea_NoJumps(t *testing.T) {
	z, err := NewZigZagArea(areaOpts())
	require.NoError(t, err)

	got, err := Collect(z)
	require.NoError(t, err)
	require.Len(t, got, 24)
	for i := 1; i < len(got); i++ {
		changed := 0
		for k := range got[i] {
			if got[i][k] != got[i-1][k] {
				changed++
				assert.InDelta(t, 1.0, abs(got[i][k]-got[i-1][k]), 1e-9, "step %d axis %d jumped", i, k)
			}
		}
		assert.Equal(t, 1, changed, "step %d changed %d axes", i, changed)
	}
}

func TestArea_SamePointSetAsZigZag(t *testing.T) {
	a, err := NewArea(areaOpts())
	require.NoError(t, err)
	z, err := NewZigZagArea(areaOpts())
	require.NoError(t, err)

	ap, err := Collect(a)
	require.NoError(t, err)
	zp, err := Collect(z)
	require.NoError(t, err)

	assert.Equal(t, len(ap), len(zp))
	assert.ElementsMatch(t, keys(ap), keys(zp))
}

func TestZigZagArea_Passes(t *testing.T) {
	z, err := NewZigZagArea(AreaOptions{Start: []float64{0, 0}, End: []float64{1, 2}, NSteps: []int{1, 2}, Passes: 2})
	require.NoError(t, err)

	got, err := Collect(z)
	require.NoError(t, err)
	assert.Equal(t, []domain.Position{
		{0, 0}, {0, 1}, {0, 2}, {1, 2}, {1, 1}, {1, 0},
		{1, 1}, {1, 2}, {0, 2}, {0, 1}, {0, 0},
	}, got)
	assert.Equal(t, len(got), z.Len())
}

func TestArea_StepSize(t *testing.T) {
	a, err := NewArea(AreaOptions{Start: []float64{0, 0}, End: []float64{1, 1}, StepSize: []float64{0.5, 1}})
	require.NoError(t, err)
	assert.Equal(t, 6, a.Len())

	n, err := Count(a)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestArea_Validation(t *testing.T) {
	_, err := NewArea(AreaOptions{Start: []float64{0}, End: []float64{1}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewArea(AreaOptions{Start: []float64{0, 0}, End: []float64{1, 1}, NSteps: []int{2}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewZigZagArea(AreaOptions{Start: []float64{0}, End: []float64{1}, NSteps: []int{1}, StepSize: []float64{1}})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func keys(ps []domain.Position) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = fmt.Sprint(p)
	}
	return out
}
