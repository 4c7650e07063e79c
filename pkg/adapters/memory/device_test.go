package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/pkg/domain"
)

func TestDevice_WriteRead(t *testing.T) {
	d, err := NewDevice([]string{"quad:k1", "quad:k2"}, WithObservable(func(k domain.Position) domain.Measurement {
		return domain.Measurement{k[0] + k[1]}
	}))
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, d.Write(ctx, domain.Position{1, 2}))
	m, err := d.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.Measurement{3.0}, m)
	assert.Equal(t, domain.Position{1, 2}, d.Position())

	writes, reads := d.Stats()
	assert.Equal(t, 1, writes)
	assert.Equal(t, 1, reads)

	assert.Error(t, d.Write(ctx, domain.Position{1}))
}

func TestDevice_DefaultObservableIsKnobs(t *testing.T) {
	d, err := NewDevice([]string{"x"}, WithInitial(domain.Position{5}))
	require.NoError(t, err)

	m, err := d.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Measurement{5.0}, m)
}

func TestDevice_LagHonoursDeadline(t *testing.T) {
	d, err := NewDevice([]string{"x"}, WithLag(time.Second))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err = d.Write(ctx, domain.Position{1})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.Position{0}, d.Position())
}

func TestDevice_ScriptedConditions(t *testing.T) {
	d, err := NewDevice([]string{"x"}, WithMonitors(map[string]any{"beam:ok": 1.0, "mode": "run"}, "beam:ok", "mode"))
	require.NoError(t, err)

	d.Script("beam:ok", 0.0, 0.0)
	ctx := context.Background()

	for _, want := range []any{0.0, 0.0, 1.0} {
		values, err := d.ReadConditions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []any{want, "run"}, values)
	}

	d.Set("mode", "idle")
	values, err := d.ReadConditions(ctx)
	require.NoError(t, err)
	assert.Equal(t, "idle", values[1])
}

func TestNewDevice_Validation(t *testing.T) {
	_, err := NewDevice([]string{"x"}, WithInitial(domain.Position{1, 2}))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewDevice([]string{"x"}, WithMonitors(nil, "missing"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
