package ports

import "context"

// Controller holds the signals shared between the scan goroutine and its
// callers. Flags are polled by the scanner between positions, never during a
// write or a read, so implementations need no notification mechanism.
type Controller interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Abort(ctx context.Context) error

	Paused(ctx context.Context) (bool, error)
	Aborted(ctx context.Context) (bool, error)

	// Reset clears both flags once a scan has finished. The last progress
	// stays readable until the next scan publishes its own.
	Reset(ctx context.Context) error

	SetProgress(ctx context.Context, completed, total int) error
	Progress(ctx context.Context) (completed, total int, err error)
}
