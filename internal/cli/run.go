// Package cli wires a scan configuration to the simulated device, the
// scanner and the optional control API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/sweep/internal/presentation/tui"
	httpadapter "github.com/aretw0/sweep/pkg/adapters/http"
	"github.com/aretw0/sweep/pkg/config"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/runner"
)

// Execute runs the scan described by opts.ConfigPath to completion.
// A user abort is not reported as an error.
func Execute(ctx context.Context, opts RunOptions) error {
	opts = opts.withDefaults()
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	logger := createLogger(opts.Stderr, opts.Debug, opts.LogFormat)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	var progress *tui.Progress
	var progressFn domain.ProgressFunc
	if !opts.Quiet {
		tui.PrintBanner(opts.Stderr)
		progress = tui.NewProgress(opts.Stderr)
		progressFn = progress.Update
	}

	b, err := buildScan(cfg, opts, logger, progressFn)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("closing scan resources", "error", err)
		}
	}()

	runnerOpts := []runner.Option{runner.WithLogger(logger), runner.WithSignals()}
	if opts.Interrupts != nil {
		runnerOpts = append(runnerOpts, runner.WithInterruptSource(opts.Interrupts))
	}
	r := runner.New(b.scanner, runnerOpts...)

	g, gctx := errgroup.WithContext(ctx)
	start := time.Now()
	if err := r.Start(gctx); err != nil {
		return err
	}
	logger.Info("scan started", "scan", b.name, "config", opts.ConfigPath)

	if opts.ControlAddr != "" {
		if err := serveControl(gctx, g, b, r, opts); err != nil {
			b.scanner.Abort()
			r.Wait()
			return err
		}
		logger.Info("control API listening", "addr", opts.ControlAddr)
	}

	g.Go(func() error {
		<-r.Done()
		return nil
	})
	serveErr := g.Wait()

	result, scanErr := r.Wait()
	if progress != nil {
		progress.Done()
	}

	var writeErr error
	if result != nil {
		writeErr = writeResult(opts.Stdout, opts.Output, result)
		if writeErr == nil && opts.Output != "" && !opts.Quiet {
			printSystemMessage(opts.Stderr, "Scan data written to %s", opts.Output)
		}
	}

	if !opts.Quiet {
		completed, total := b.scanner.Progress()
		summary := tui.Summary{
			Name:      b.name,
			State:     b.scanner.State(),
			Completed: completed,
			Total:     total,
			Duration:  time.Since(start),
			Output:    opts.Output,
			Err:       scanErr,
		}
		out, err := tui.NewRenderer(tui.IsTerminal(opts.Stderr))(summary.Markdown())
		if err == nil {
			fmt.Fprint(opts.Stderr, out)
		}
	}

	return errors.Join(handleExecutionError(scanErr), writeErr, serveErr)
}

// serveControl exposes the scanner over HTTP until the scan returns.
func serveControl(ctx context.Context, g *errgroup.Group, b *scanBundle, r *runner.Runner, opts RunOptions) error {
	ln, err := net.Listen("tcp", opts.ControlAddr)
	if err != nil {
		return fmt.Errorf("control API: %w", err)
	}

	handlerOpts := []httpadapter.Option{httpadapter.WithName(b.name)}
	if opts.Metrics {
		handlerOpts = append(handlerOpts, httpadapter.WithMetrics(b.registry))
	}
	srv := &http.Server{
		Handler:           httpadapter.NewHandler(b.scanner, handlerOpts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-r.Done():
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", opts.ShutdownTimeout, err)
		}
		return nil
	})
	return nil
}
