package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/internal/logging"
	"github.com/aretw0/sweep/pkg/config"
	"github.com/aretw0/sweep/pkg/domain"
)

func quietOptions(t *testing.T, configPath string) RunOptions {
	t.Helper()
	return RunOptions{
		ConfigPath: configPath,
		Quiet:      true,
		Stdout:     &bytes.Buffer{},
		Stderr:     &bytes.Buffer{},
	}
}

func TestExecute_WritesData(t *testing.T) {
	opts := quietOptions(t, filepath.Join("testdata", "line.yaml"))
	opts.Output = filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, Execute(context.Background(), opts))

	raw, err := os.ReadFile(opts.Output)
	require.NoError(t, err)

	var data struct {
		Positions [][]float64 `json:"positions"`
		Samples   [][]float64 `json:"samples"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, [][]float64{{0}, {0.5}, {1}}, data.Positions)
	assert.Equal(t, [][]float64{{0}, {0.5}, {1}}, data.Samples)
}

func TestExecute_Summary(t *testing.T) {
	var stdout, stderr bytes.Buffer
	opts := RunOptions{
		ConfigPath: filepath.Join("testdata", "line.yaml"),
		Stdout:     &stdout,
		Stderr:     &stderr,
	}

	require.NoError(t, Execute(context.Background(), opts))
	assert.Contains(t, stderr.String(), "# Scan `line-scan`")
	assert.Contains(t, stderr.String(), "3 / 3")
	assert.Contains(t, stdout.String(), `"positions"`)
}

func TestExecute_ConfigErrors(t *testing.T) {
	err := Execute(context.Background(), quietOptions(t, filepath.Join("testdata", "missing.yaml")))
	require.Error(t, err)

	err = Execute(context.Background(), quietOptions(t, filepath.Join("testdata", "tool.yaml")))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestExecute_InterruptAborts(t *testing.T) {
	interrupts := make(chan struct{}, 1)
	opts := quietOptions(t, filepath.Join("testdata", "slow.yaml"))
	opts.Interrupts = interrupts

	done := make(chan error, 1)
	go func() { done <- Execute(context.Background(), opts) }()

	time.Sleep(60 * time.Millisecond)
	interrupts <- struct{}{}

	select {
	case err := <-done:
		assert.NoError(t, err, "a user abort exits cleanly")
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not stop after the interrupt")
	}
}

func TestExecute_ControlAPI(t *testing.T) {
	opts := quietOptions(t, filepath.Join("testdata", "line.yaml"))
	opts.ControlAddr = "127.0.0.1:0"
	opts.Metrics = true

	require.NoError(t, Execute(context.Background(), opts))
}

func TestBuildScan_Observables(t *testing.T) {
	cfg, err := config.Load(filepath.Join("testdata", "line.yaml"))
	require.NoError(t, err)

	cfg.Device.Observable = "gaussian"
	b, err := buildScan(cfg, RunOptions{ConfigPath: "testdata/line.yaml"}, logging.NewNop(), nil)
	require.NoError(t, err)
	defer b.Close()

	m, err := b.device.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Measurement{1.0}, m)

	cfg.Device.Observable = "laser"
	_, err = buildScan(cfg, RunOptions{}, logging.NewNop(), nil)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestPrintPositionsAndCount(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintPositions(&buf, filepath.Join("testdata", "line.yaml")))
	assert.Equal(t, []string{"[0]", "[0.5]", "[1]"}, strings.Fields(buf.String()))

	buf.Reset()
	require.NoError(t, PrintCount(&buf, filepath.Join("testdata", "slow.yaml")))
	assert.Equal(t, "101\n", buf.String())
}
