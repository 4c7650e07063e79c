package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/sweep/pkg/domain"
)

// LoggingHooks logs recorded positions, retries and the scan outcome.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPosition: func(ctx context.Context, e *domain.PositionEvent) {
			logger.InfoContext(ctx, "position recorded",
				"scan_id", e.ScanID,
				"index", e.Index,
				"total", e.Total,
				"position", e.Position.String(),
				"attempts", e.Attempts,
				"duration", e.Duration,
			)
		},
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) {
			logger.WarnContext(ctx, "sample discarded", "scan_id", e.ScanID, "index", e.Index, "attempt", e.Attempt, "error", e.Cause)
		},
		OnComplete: func(ctx context.Context, e *domain.CompleteEvent) {
			level := slog.LevelInfo
			if e.Err != nil {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "scan finished", "scan_id", e.ScanID, "state", e.State, "duration", e.Duration, "error", e.Err)
		},
	}
}
