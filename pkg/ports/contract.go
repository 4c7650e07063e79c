package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunControllerContract runs a suite of tests to verify that a Controller implementation
// adheres to the defined interface contract.
func RunControllerContract(t *testing.T, c Controller) {
	ctx := context.Background()

	t.Run("Reset clears flags and keeps progress", func(t *testing.T) {
		require.NoError(t, c.Pause(ctx))
		require.NoError(t, c.Abort(ctx))
		require.NoError(t, c.SetProgress(ctx, 3, 10))

		require.NoError(t, c.Reset(ctx))

		paused, err := c.Paused(ctx)
		require.NoError(t, err)
		assert.False(t, paused)
		aborted, err := c.Aborted(ctx)
		require.NoError(t, err)
		assert.False(t, aborted)
		done, total, err := c.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, done)
		assert.Equal(t, 10, total)
	})

	t.Run("Pause and Resume", func(t *testing.T) {
		require.NoError(t, c.Reset(ctx))

		require.NoError(t, c.Pause(ctx))
		paused, err := c.Paused(ctx)
		require.NoError(t, err)
		assert.True(t, paused)

		require.NoError(t, c.Resume(ctx))
		paused, err = c.Paused(ctx)
		require.NoError(t, err)
		assert.False(t, paused)
	})

	t.Run("Abort is sticky until Reset", func(t *testing.T) {
		require.NoError(t, c.Reset(ctx))
		require.NoError(t, c.Abort(ctx))
		require.NoError(t, c.Resume(ctx))

		aborted, err := c.Aborted(ctx)
		require.NoError(t, err)
		assert.True(t, aborted)
	})

	t.Run("Progress round trip", func(t *testing.T) {
		require.NoError(t, c.Reset(ctx))
		require.NoError(t, c.SetProgress(ctx, 4, 9))

		done, total, err := c.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, done)
		assert.Equal(t, 9, total)
	})
}

// RunLockerContract verifies that a DistributedLocker gives exclusive access per key.
func RunLockerContract(t *testing.T, l DistributedLocker) {
	ctx := context.Background()
	key := "contract-" + time.Now().Format("20060102150405.000")

	t.Run("Lock and Unlock", func(t *testing.T) {
		unlock, err := l.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})

	t.Run("Second holder waits", func(t *testing.T) {
		unlock, err := l.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		waitCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
		defer cancel()
		_, err = l.Lock(waitCtx, key, 5*time.Second)
		assert.Error(t, err, "lock must not be granted while held")

		require.NoError(t, unlock(ctx))

		unlock, err = l.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		require.NoError(t, unlock(ctx))
	})
}
