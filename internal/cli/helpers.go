package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/sweep/internal/logging"
	"github.com/aretw0/sweep/pkg/domain"
)

// createLogger configures the application logger.
// Info and above go to w; debug mode lowers the level.
func createLogger(w io.Writer, debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	f := logging.FormatText
	if format == string(logging.FormatJSON) {
		f = logging.FormatJSON
	}
	return logging.NewWithWriter(w, level, f)
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// writeResult encodes the scan data as indented JSON to path, or to w when
// path is empty.
func writeResult(w io.Writer, path string, data any) error {
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("encode scan data: %w", err)
	}
	return nil
}

// handleExecutionError maps a user abort to a clean exit.
func handleExecutionError(err error) error {
	if err == nil || errors.Is(err, domain.ErrUserAbort) {
		return nil
	}
	return err
}
