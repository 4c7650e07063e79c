package cli

import (
	"io"
	"time"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	ConfigPath string
	// ToolsPath lists the commands that process actions may run.
	ToolsPath string
	// Output receives the scan data as JSON. Empty means Stdout.
	Output string
	// ControlAddr serves the HTTP control API when set.
	ControlAddr string
	Metrics     bool
	Debug       bool
	LogFormat   string
	Quiet       bool
	// Redis overrides control.redis from the configuration.
	Redis string

	// Interrupts counts as SIGINT, for embedding and tests.
	Interrupts <-chan struct{}

	Stdout io.Writer
	Stderr io.Writer

	ShutdownTimeout time.Duration
}

func (o RunOptions) withDefaults() RunOptions {
	if o.ToolsPath == "" {
		o.ToolsPath = "tools.yaml"
	}
	if o.ShutdownTimeout == 0 {
		o.ShutdownTimeout = 5 * time.Second
	}
	return o
}
