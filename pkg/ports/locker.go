package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker keeps a single scan on a set of knobs across processes.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl unless released earlier through the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
