package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/positioner"
)

func TestLoad_YAML(t *testing.T) {
	cfg, err := Load("testdata/quad.yaml")
	require.NoError(t, err)

	assert.Equal(t, "quad-scan", cfg.Name)
	assert.Equal(t, []string{"quad:k1", "corr:h", "corr:v"}, cfg.Knobs())
	assert.Equal(t, 50*time.Millisecond, cfg.Settings.SettlingTime)
	assert.Equal(t, 2, cfg.Settings.NMeasurements)
	assert.Equal(t, 5*time.Millisecond, cfg.Device.Lag)

	settings := cfg.Settings.ScanSettings()
	assert.Equal(t, 100*time.Millisecond, settings.RetryDelay)

	conds, err := cfg.DomainConditions()
	require.NoError(t, err)
	require.Len(t, conds, 2)
	assert.Equal(t, domain.PolicyRetry, conds[0].Policy)
	assert.Equal(t, domain.PolicyAbort, conds[1].Policy)
	assert.Equal(t, []any{"run", "standby"}, conds[1].Expected)
	assert.Equal(t, []string{"beam:current", "mode"}, cfg.ConditionIDs())

	p, err := cfg.Positioner(clock.RealClock{})
	require.NoError(t, err)
	n, err := positioner.Count(p)
	require.NoError(t, err)
	assert.Equal(t, 5*4, n)

	first, err := positioner.Collect(p)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{-2, 0, 0}, first[0])
}

func TestLoad_JSON(t *testing.T) {
	cfg, err := Load("testdata/time.json")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Settings.WriteTimeout)
	assert.Empty(t, cfg.Knobs())

	p, err := cfg.Positioner(clock.RealClock{})
	require.NoError(t, err)
	n, err := positioner.Count(p)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestDecode_LegacyNestedMap(t *testing.T) {
	raw := map[string]any{
		"positioners": []any{
			map[string]any{
				"type":      "serial",
				"knobs":     []any{"a", "b"},
				"positions": []any{[]any{1, 2}, []any{3.5, 4}},
				"initial":   []any{0, 0},
			},
		},
		"settings": map[string]any{"settling_time": "1s", "max_retries": "5"},
	}
	cfg, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Settings.SettlingTime)
	assert.Equal(t, 5, cfg.Settings.MaxRetries)

	p, err := cfg.Positioner(nil)
	require.NoError(t, err)
	n, err := positioner.Count(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestDecode_Errors(t *testing.T) {
	cases := map[string]map[string]any{
		"no positioners": {},
		"unknown key": {
			"positioners": []any{map[string]any{"type": "static", "count": 1}},
			"colour":      "blue",
		},
		"bad hook": {
			"positioners": []any{map[string]any{"type": "static", "count": 1}},
			"actions":     map[string]any{"someday": []any{map[string]any{"name": "x", "set": "y"}}},
		},
		"action without target": {
			"positioners": []any{map[string]any{"type": "static", "count": 1}},
			"actions":     map[string]any{"finalization": []any{map[string]any{"name": "x"}}},
		},
		"by_channel without readables": {
			"positioners": []any{map[string]any{"type": "static", "count": 1}},
			"processor":   map[string]any{"type": "by_channel"},
		},
		"time combined": {
			"positioners": []any{
				map[string]any{"type": "time", "interval": "1s", "n_intervals": 2},
				map[string]any{"type": "static", "count": 1},
			},
		},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestPositioner_KnobCountMismatch(t *testing.T) {
	cfg := &ScanConfig{Positioners: []PositionerConfig{{
		Type: "line", Knobs: []string{"a"}, Start: []float64{0, 0}, End: []float64{1, 1}, NSteps: []int{2},
	}}}
	_, err := cfg.Positioner(nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestBuild_UnknownType(t *testing.T) {
	_, err := PositionerConfig{Type: "spiral"}.Build(nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = PositionerConfig{Type: "line", Start: []float64{0}, End: []float64{1}, NSteps: []int{2, 3}}.Build(nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}
