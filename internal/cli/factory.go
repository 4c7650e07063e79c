package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"k8s.io/utils/clock"

	"github.com/aretw0/sweep"
	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/adapters/memory"
	"github.com/aretw0/sweep/pkg/adapters/process"
	redisadapter "github.com/aretw0/sweep/pkg/adapters/redis"
	"github.com/aretw0/sweep/pkg/config"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/observability"
	"github.com/aretw0/sweep/pkg/ports"
	"github.com/aretw0/sweep/pkg/processor"
)

const defaultScanName = "scan"

// scanBundle is a scanner wired to the simulated device described by a config.
type scanBundle struct {
	name     string
	cfg      *config.ScanConfig
	scanner  *sweep.Scanner
	device   *memory.Device
	registry *prometheus.Registry
	closers  []func() error
}

func (b *scanBundle) Close() error {
	var errs []error
	for _, c := range slices.Backward(b.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildScan initializes a scanner with standard CLI conventions.
func buildScan(cfg *config.ScanConfig, opts RunOptions, logger *slog.Logger, progress domain.ProgressFunc) (*scanBundle, error) {
	b := &scanBundle{
		name:     cfg.Name,
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
	}
	if b.name == "" {
		b.name = defaultScanName
	}

	clk := clock.RealClock{}
	pos, err := cfg.Positioner(clk)
	if err != nil {
		return nil, err
	}

	// 1. Device
	observe, err := observable(cfg.Device.Observable)
	if err != nil {
		return nil, err
	}
	knobs := cfg.Knobs()
	device, err := memory.NewDevice(knobs,
		memory.WithLag(cfg.Device.Lag),
		memory.WithMonitors(cfg.Device.Monitors, cfg.ConditionIDs()...),
		memory.WithObservable(observe),
		memory.WithClock(clk),
	)
	if err != nil {
		return nil, err
	}
	b.device = device

	// Time scans have nothing to write.
	var writer ports.Writer
	if len(knobs) > 0 {
		writer = device
	}

	proc, err := newProcessor(cfg)
	if err != nil {
		return nil, err
	}

	settings := cfg.Settings.ScanSettings()
	settings.Progress = progress

	scanOpts := []sweep.Option{
		sweep.WithName(b.name),
		sweep.WithSettings(settings),
		sweep.WithLogger(logger),
	}

	// 2. Conditions & Actions
	conds, err := cfg.DomainConditions()
	if err != nil {
		return nil, err
	}
	if len(conds) > 0 {
		scanOpts = append(scanOpts, sweep.WithConditions(device, conds...))
	}

	executors, err := buildActions(cfg, opts, device)
	if err != nil {
		return nil, err
	}
	if len(executors) > 0 {
		scanOpts = append(scanOpts, sweep.WithActions(executors...))
	}

	if cfg.StepBack {
		scanOpts = append(scanOpts, sweep.WithStepBack())
	}

	// 3. Observability
	hooks := observability.LoggingHooks(logger)
	if opts.Metrics {
		b.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := observability.NewMetrics(b.registry, b.name)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		hooks = metrics.Hooks().Merge(hooks)
	}
	scanOpts = append(scanOpts, sweep.WithLifecycleHooks(hooks))

	// 4. Remote control
	redisAddr := cfg.Control.Redis
	if opts.Redis != "" {
		redisAddr = opts.Redis
	}
	if redisAddr != "" {
		prefix := cfg.Control.Prefix
		if prefix == "" {
			prefix = redisadapter.DefaultPrefix
		}
		client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
		b.closers = append(b.closers, client.Close)

		scanOpts = append(scanOpts, sweep.WithController(redisadapter.NewFromClient(client, b.name, redisadapter.WithPrefix(prefix))))
		if cfg.Control.Lock {
			scanOpts = append(scanOpts, sweep.WithLocker(redisadapter.NewLocker(client, prefix), "", cfg.Control.LockTTL))
		}
		logger.Debug("remote control enabled", "redis", redisAddr, "prefix", prefix)
	}

	scanner, err := sweep.New(pos, writer, device, proc, scanOpts...)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.scanner = scanner
	return b, nil
}

func newProcessor(cfg *config.ScanConfig) (processor.Processor, error) {
	switch cfg.Processor.Type {
	case "", "pairs":
		return processor.NewPairs(), nil
	case "by_channel":
		return processor.NewByChannel(cfg.Readables...)
	default:
		return nil, domain.Configf("processor.type", "unknown processor %q", cfg.Processor.Type)
	}
}

// buildActions binds the configured actions to executors. Set actions write
// a monitored channel of the device; tool actions run an allow-listed command.
func buildActions(cfg *config.ScanConfig, opts RunOptions, device *memory.Device) ([]*action.Executor, error) {
	var tools *process.Runner
	var executors []*action.Executor

	for _, hook := range domain.Hooks {
		var configured []config.ActionConfig
		for key, list := range cfg.Actions {
			if h, err := domain.ParseHook(key); err == nil && h == hook {
				configured = append(configured, list...)
			}
		}
		if len(configured) == 0 {
			continue
		}

		exec := action.NewExecutor(hook)
		for _, ac := range configured {
			if ac.Set != "" {
				channel, value := ac.Set, ac.Value
				err := exec.Add(action.Action{
					Name:  ac.Name,
					Order: ac.Order,
					Fn: func(context.Context) error {
						device.Set(channel, value)
						return nil
					},
				})
				if err != nil {
					return nil, err
				}
				continue
			}

			if tools == nil {
				var err error
				if tools, err = loadTools(opts); err != nil {
					return nil, err
				}
			}
			a, err := tools.Action(hook, ac.Name, ac.Tool, ac.Order, ac.Args)
			if err != nil {
				return nil, err
			}
			if err := exec.Add(a); err != nil {
				return nil, err
			}
		}
		executors = append(executors, exec)
	}
	return executors, nil
}

// loadTools reads the command allow-list. A relative path is tried next to
// the scan configuration first.
func loadTools(opts RunOptions) (*process.Runner, error) {
	baseDir := filepath.Dir(opts.ConfigPath)
	path := opts.ToolsPath
	if !filepath.IsAbs(path) {
		candidate := filepath.Join(baseDir, path)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	commands, err := process.LoadCommands(path)
	if err != nil {
		return nil, err
	}
	return process.NewRunner(process.WithRegistry(commands), process.WithBaseDir(baseDir)), nil
}

// observable returns the response model of the simulated device.
func observable(name string) (memory.ObserveFunc, error) {
	switch name {
	case "", "knobs":
		return nil, nil
	case "sum":
		return func(knobs domain.Position) domain.Measurement {
			var sum float64
			for _, v := range knobs {
				sum += v
			}
			return domain.Measurement{sum}
		}, nil
	case "gaussian":
		return func(knobs domain.Position) domain.Measurement {
			var r2 float64
			for _, v := range knobs {
				r2 += v * v
			}
			return domain.Measurement{math.Exp(-r2 / 2)}
		}, nil
	default:
		return nil, domain.Configf("device.observable", "unknown observable %q", name)
	}
}
