// Package process runs allow-listed external commands as lifecycle actions.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/domain"
)

// Runner executes registered commands only.
type Runner struct {
	registry map[string]CommandConfig
	baseDir  string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(commands map[string]CommandConfig) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			c.Name = name
			r.registry[name] = c
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a runner with an empty allow-list.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{registry: make(map[string]CommandConfig)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list.
func (r *Runner) Register(name string, command string, args ...string) {
	r.registry[name] = CommandConfig{Name: name, Command: command, Args: args}
}

// Names returns the registered command names, sorted.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.registry))
	for name := range r.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named command and returns its trimmed stdout.
//
// args never reach the command line: each one is passed as SWEEP_ARG_<KEY>
// in the environment, with maps and slices JSON encoded. The hook is passed
// as SWEEP_HOOK.
func (r *Runner) Run(ctx context.Context, name string, hook domain.Hook, args map[string]any) (string, error) {
	c, ok := r.registry[name]
	if !ok {
		return "", fmt.Errorf("process command not registered: %s", name)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Command, c.Args...)
	cmd.Dir = r.baseDir

	env := cmd.Environ()
	for k, v := range c.Environment {
		env = append(env, k+"="+v)
	}
	env = append(env, "SWEEP_HOOK="+string(hook))
	for k, v := range args {
		env = append(env, fmt.Sprintf("SWEEP_ARG_%s=%s", strings.ToUpper(k), encodeArg(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Action wraps a registered command as a lifecycle action. An unknown
// command is a configuration error, reported before the scan starts.
func (r *Runner) Action(hook domain.Hook, name, command string, order int, args map[string]any) (action.Action, error) {
	if _, ok := r.registry[command]; !ok {
		return action.Action{}, domain.Configf("actions."+string(hook), "action %q uses unregistered command %q", name, command)
	}
	return action.Action{
		Name:  name,
		Order: order,
		Fn: func(ctx context.Context) error {
			_, err := r.Run(ctx, command, hook, args)
			return err
		},
	}, nil
}

func encodeArg(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case int, int64, float64, bool:
		return fmt.Sprint(v)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
