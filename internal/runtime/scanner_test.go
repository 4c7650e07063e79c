package runtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sweep/pkg/action"
	"github.com/aretw0/sweep/pkg/condition"
	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/ports"
	"github.com/aretw0/sweep/pkg/positioner"
	"github.com/aretw0/sweep/pkg/processor"
)

// device records writes and counts reads.
type device struct {
	mu     sync.Mutex
	writes []domain.Position
	reads  atomic.Int32
	value  any
}

func (d *device) Write(_ context.Context, pos domain.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writes = append(d.writes, pos.Clone())
	return nil
}

func (d *device) Read(context.Context) (domain.Measurement, error) {
	n := d.reads.Add(1)
	if d.value != nil {
		return domain.Measurement{d.value}, nil
	}
	return domain.Measurement{int(n)}, nil
}

func (d *device) Writes() []domain.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.Position(nil), d.writes...)
}

func line(t *testing.T, n int) positioner.Positioner {
	t.Helper()
	points := make([][]float64, n)
	for i := range points {
		points[i] = []float64{float64(i)}
	}
	p, err := positioner.NewVector(positioner.VectorOptions{Positions: points})
	require.NoError(t, err)
	return p
}

func fastSettings() domain.ScanSettings {
	return domain.ScanSettings{
		RetryDelay:   time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		WriteTimeout: time.Second,
	}
}

// counter returns an executor for hook that counts its invocations.
func counter(t *testing.T, hook domain.Hook, n *atomic.Int32) *action.Executor {
	t.Helper()
	e := action.NewExecutor(hook)
	require.NoError(t, e.AddFunc("count", func(context.Context) error {
		n.Add(1)
		return nil
	}))
	return e
}

// failingConditions rejects the first `failures` samples with the given policy.
func failingConditions(t *testing.T, failures int32, policy domain.Policy) (ports.ConditionReader, *condition.Validator, *atomic.Int32) {
	t.Helper()
	v, err := condition.NewValidator(domain.Condition{ID: "beam:ok", Expected: 1.0, Tolerance: 0.1, Policy: policy})
	require.NoError(t, err)

	calls := &atomic.Int32{}
	reader := ports.ConditionReaderFunc(func(context.Context) ([]any, error) {
		if calls.Add(1) <= failures {
			return []any{0.0}, nil
		}
		return []any{1.0}, nil
	})
	return reader, v, calls
}

func TestScanner_RecordsEveryPosition(t *testing.T) {
	dev := &device{value: 42.0}
	proc := processor.NewPairs()

	var mu sync.Mutex
	var progress [][2]int
	settings := fastSettings()
	settings.Progress = func(completed, total int) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, [2]int{completed, total})
	}

	s, err := NewScanner(line(t, 5), dev, dev, proc, WithSettings(settings))
	require.NoError(t, err)

	data, err := s.DiscreteScan(context.Background())
	require.NoError(t, err)

	pairs := data.(processor.PairsData)
	require.Len(t, pairs.Samples, 5)
	for _, sample := range pairs.Samples {
		assert.Equal(t, domain.Measurement{42.0}, sample)
	}
	assert.Equal(t, []domain.Position{{0}, {1}, {2}, {3}, {4}}, dev.Writes())

	require.Len(t, progress, 6)
	assert.Equal(t, [2]int{0, 5}, progress[0])
	assert.Equal(t, [2]int{5, 5}, progress[5])
	for i := 1; i < len(progress); i++ {
		assert.GreaterOrEqual(t, progress[i][0], progress[i-1][0])
	}

	assert.Equal(t, domain.StateCompleted, s.State())
	done, total, err := s.Progress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, done)
	assert.Equal(t, 5, total)
}

func TestScanner_RetryThenAccept(t *testing.T) {
	dev := &device{}
	proc := processor.NewPairs()
	condReader, validator, _ := failingConditions(t, 2, domain.PolicyRetry)

	var retries atomic.Int32
	s, err := NewScanner(line(t, 1), dev, dev, proc,
		WithSettings(fastSettings()),
		WithConditions(condReader, validator),
		WithLifecycleHooks(domain.LifecycleHooks{
			OnRetry: func(context.Context, *domain.RetryEvent) { retries.Add(1) },
		}),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(3), dev.reads.Load())
	assert.Equal(t, int32(2), retries.Load())
	assert.Equal(t, []domain.Sample{domain.Measurement{3}}, proc.Snapshot().Samples)
}

func TestScanner_RetryExhausted(t *testing.T) {
	dev := &device{}
	proc := processor.NewPairs()
	condReader, validator, _ := failingConditions(t, 100, domain.PolicyRetry)

	var finalized atomic.Int32
	settings := fastSettings()
	settings.MaxRetries = 2

	s, err := NewScanner(line(t, 3), dev, dev, proc,
		WithSettings(settings),
		WithConditions(condReader, validator),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
	)
	require.NoError(t, err)

	data, err := s.DiscreteScan(context.Background())
	require.Error(t, err)
	assert.Nil(t, data)
	assert.ErrorIs(t, err, domain.ErrRetryExhausted)

	var exhausted *domain.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "beam:ok", exhausted.Last.Channel)

	assert.Equal(t, int32(3), dev.reads.Load())
	assert.Empty(t, proc.Snapshot().Samples)
	assert.Equal(t, int32(1), finalized.Load())
	assert.Equal(t, domain.StateFailed, s.State())
}

func TestScanner_ConditionAbort(t *testing.T) {
	dev := &device{}
	condReader, validator, _ := failingConditions(t, 1, domain.PolicyAbort)

	s, err := NewScanner(line(t, 3), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithConditions(condReader, validator),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, domain.ErrConditionAbort)
	assert.False(t, domain.IsUserAbort(err))
	assert.Equal(t, int32(1), dev.reads.Load())
}

func TestScanner_AbortWhilePaused(t *testing.T) {
	dev := &device{}
	var finalized atomic.Int32
	settings := fastSettings()
	settings.PollInterval = 50 * time.Millisecond

	var s *Scanner
	var err error
	s, err = NewScanner(line(t, 10), dev, dev, processor.NewPairs(),
		WithSettings(settings),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
		WithLifecycleHooks(domain.LifecycleHooks{
			OnPosition: func(ctx context.Context, e *domain.PositionEvent) {
				if e.Index == 1 {
					_ = s.Pause(ctx)
				}
			},
		}),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.DiscreteScan(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.State() == domain.StatePaused }, 2*time.Second, time.Millisecond)
	abortedAt := time.Now()
	require.NoError(t, s.Abort(context.Background()))

	select {
	case err := <-done:
		assert.Less(t, time.Since(abortedAt), 3*settings.PollInterval)
		assert.ErrorIs(t, err, domain.ErrUserAbort)

		var abort *domain.AbortError
		require.ErrorAs(t, err, &abort)
		assert.Equal(t, 2, abort.Completed)
		assert.Equal(t, 10, abort.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("scan did not honour abort while paused")
	}

	assert.Equal(t, int32(1), finalized.Load())
	assert.Equal(t, domain.StateAborted, s.State())
	assert.Len(t, dev.Writes(), 2)
}

func TestScanner_PauseResume(t *testing.T) {
	dev := &device{}
	var s *Scanner
	var err error
	var states []domain.ScanState
	var mu sync.Mutex

	s, err = NewScanner(line(t, 3), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithLifecycleHooks(domain.LifecycleHooks{
			OnPosition: func(ctx context.Context, e *domain.PositionEvent) {
				if e.Index == 0 {
					_ = s.Pause(ctx)
				}
			},
			OnStateChange: func(_ context.Context, e *domain.StateEvent) {
				mu.Lock()
				defer mu.Unlock()
				states = append(states, e.To)
			},
		}),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.DiscreteScan(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.State() == domain.StatePaused }, 2*time.Second, time.Millisecond)
	assert.Len(t, dev.Writes(), 1)
	require.NoError(t, s.Resume(context.Background()))

	require.NoError(t, <-done)
	assert.Len(t, dev.Writes(), 3)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, states, domain.StatePaused)
	assert.Equal(t, domain.StateCompleted, states[len(states)-1])
}

func TestScanner_ContextCancelIsUserAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var finalized atomic.Int32
	writer := ports.WriterFunc(func(_ context.Context, pos domain.Position) error {
		if pos[0] == 2 {
			cancel()
		}
		return nil
	})
	dev := &device{}

	s, err := NewScanner(line(t, 5), writer, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(ctx)
	assert.ErrorIs(t, err, domain.ErrUserAbort)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), finalized.Load())
}

func TestScanner_WriteTimeout(t *testing.T) {
	writer := ports.WriterFunc(func(ctx context.Context, _ domain.Position) error {
		<-ctx.Done()
		return ctx.Err()
	})
	var finalized atomic.Int32
	settings := fastSettings()
	settings.WriteTimeout = 20 * time.Millisecond

	s, err := NewScanner(line(t, 2), writer, &device{}, processor.NewPairs(),
		WithSettings(settings),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, domain.ErrActuationTimeout)

	var timeout *domain.ActuationTimeout
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, domain.Position{0}, timeout.Position)
	assert.Equal(t, int32(1), finalized.Load())
}

func TestScanner_WriterError(t *testing.T) {
	boom := errors.New("ioc unreachable")
	writer := ports.WriterFunc(func(context.Context, domain.Position) error { return boom })

	s, err := NewScanner(line(t, 2), writer, &device{}, processor.NewPairs(), WithSettings(fastSettings()))
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, domain.ErrActuationTimeout)
}

func TestScanner_HookOrder(t *testing.T) {
	var mu sync.Mutex
	var calls []domain.Hook
	var executors []*action.Executor
	for _, hook := range domain.Hooks {
		e := action.NewExecutor(hook)
		require.NoError(t, e.AddFunc(string(hook), func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, hook)
			return nil
		}))
		executors = append(executors, e)
	}

	dev := &device{}
	s, err := NewScanner(line(t, 2), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithActions(executors...),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)

	perPosition := []domain.Hook{
		domain.HookBeforeMove, domain.HookAfterMove,
		domain.HookBeforeMeasurement, domain.HookAfterMeasurement,
	}
	want := []domain.Hook{domain.HookInitialization}
	want = append(want, perPosition...)
	want = append(want, perPosition...)
	want = append(want, domain.HookFinalization)
	assert.Equal(t, want, calls)
}

func TestScanner_FinalizationErrorIsJoined(t *testing.T) {
	boom := errors.New("shutter stuck")
	final := action.NewExecutor(domain.HookFinalization)
	require.NoError(t, final.AddFunc("close shutter", func(context.Context) error { return boom }))

	condReader, validator, _ := failingConditions(t, 1, domain.PolicyAbort)
	dev := &device{}
	s, err := NewScanner(line(t, 2), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithConditions(condReader, validator),
		WithActions(final),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, domain.ErrConditionAbort)
	assert.ErrorIs(t, err, boom)

	s, err = NewScanner(line(t, 2), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithActions(final),
	)
	require.NoError(t, err)
	_, err = s.DiscreteScan(context.Background())

	var actionErr *domain.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.Equal(t, domain.HookFinalization, actionErr.Hook)
}

func TestScanner_RepeatedMeasurements(t *testing.T) {
	dev := &device{}
	settings := fastSettings()
	settings.NMeasurements = 3
	settings.MeasurementInterval = time.Millisecond

	proc := processor.NewPairs()
	s, err := NewScanner(line(t, 2), dev, dev, proc, WithSettings(settings))
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)

	samples := proc.Snapshot().Samples
	require.Len(t, samples, 2)
	assert.Equal(t, []domain.Measurement{{1}, {2}, {3}}, samples[0])
	assert.Equal(t, []domain.Measurement{{4}, {5}, {6}}, samples[1])
}

func TestScanner_StepBack(t *testing.T) {
	v, err := condition.NewValidator(domain.Condition{ID: "beam:ok", Expected: 1.0, Policy: domain.PolicyRetry})
	require.NoError(t, err)
	var calls atomic.Int32
	condReader := ports.ConditionReaderFunc(func(context.Context) ([]any, error) {
		if calls.Add(1) == 3 {
			return []any{0.0}, nil
		}
		return []any{1.0}, nil
	})

	var progress []int
	settings := fastSettings()
	settings.Progress = func(completed, _ int) { progress = append(progress, completed) }

	dev := &device{}
	proc := processor.NewPairs()
	s, err := NewScanner(line(t, 3), dev, dev, proc,
		WithSettings(settings),
		WithConditions(condReader, v),
		WithStepBack(),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.Position{{0}, {1}, {2}, {1}, {2}}, dev.Writes())
	assert.Equal(t, []domain.Position{{0}, {1}, {2}}, proc.Snapshot().Positions)
	assert.Equal(t, []int{0, 1, 2, 2, 3}, progress)
}

func TestScanner_StaticWithoutWriter(t *testing.T) {
	static, err := positioner.NewStatic(4)
	require.NoError(t, err)

	dev := &device{}
	s, err := NewScanner(static, nil, dev, processor.NewPairs(), WithSettings(fastSettings()))
	require.NoError(t, err)

	data, err := s.DiscreteScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.(processor.PairsData).Samples, 4)
	assert.Equal(t, int32(4), dev.reads.Load())
}

type fakeLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
}

func (l *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestScanner_HoldsLock(t *testing.T) {
	locker := &fakeLocker{}
	dev := &device{}
	s, err := NewScanner(line(t, 2), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithName("quad-scan"),
		WithLocker(locker, "", 0),
	)
	require.NoError(t, err)

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scan:quad-scan"}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestNewScanner_Configuration(t *testing.T) {
	dev := &device{}
	_, validator, _ := failingConditions(t, 0, domain.PolicyRetry)

	cases := map[string][]any{
		"no positioner": {nil, dev, processor.NewPairs()},
		"no reader":     {line(t, 2), nil, processor.NewPairs()},
		"no processor":  {line(t, 2), dev, nil},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			pos, _ := args[0].(positioner.Positioner)
			reader, _ := args[1].(ports.Reader)
			proc, _ := args[2].(processor.Processor)
			_, err := NewScanner(pos, dev, reader, proc)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}

	_, err := NewScanner(line(t, 2), dev, dev, processor.NewPairs(), WithConditions(nil, validator))
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	callback := processor.NewCallback(func(domain.Position, domain.Sample) error { return nil })
	_, err = NewScanner(line(t, 2), dev, dev, callback, WithStepBack())
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestScanner_RejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	writer := ports.WriterFunc(func(context.Context, domain.Position) error {
		<-release
		return nil
	})
	s, err := NewScanner(line(t, 1), writer, &device{}, processor.NewPairs(), WithSettings(fastSettings()))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.DiscreteScan(context.Background())
		done <- err
	}()
	require.Eventually(t, s.Running, time.Second, time.Millisecond)

	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestScanner_AbortBeforeStart(t *testing.T) {
	dev := &device{}
	var finalized atomic.Int32
	s, err := NewScanner(line(t, 5), dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
	)
	require.NoError(t, err)

	require.NoError(t, s.Abort(context.Background()))
	_, err = s.DiscreteScan(context.Background())
	assert.ErrorIs(t, err, domain.ErrUserAbort)
	assert.Empty(t, dev.Writes())
	assert.Equal(t, int32(1), finalized.Load())
	assert.Equal(t, domain.StateAborted, s.State())

	aborted, err := s.Controller().Aborted(context.Background())
	require.NoError(t, err)
	assert.False(t, aborted, "flags are cleared once the scan ends")

	_, err = s.DiscreteScan(context.Background())
	require.NoError(t, err)
	assert.Len(t, dev.Writes(), 5)
}

func TestScanner_PauseBeforeStart(t *testing.T) {
	dev := &device{}
	s, err := NewScanner(line(t, 3), dev, dev, processor.NewPairs(), WithSettings(fastSettings()))
	require.NoError(t, err)
	require.NoError(t, s.Pause(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := s.DiscreteScan(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return s.State() == domain.StatePaused }, 2*time.Second, time.Millisecond)
	assert.Empty(t, dev.Writes())
	require.NoError(t, s.Resume(context.Background()))

	require.NoError(t, <-done)
	assert.Len(t, dev.Writes(), 3)
}

func TestScanner_AbortDuringTimeWait(t *testing.T) {
	tp, err := positioner.NewTime(positioner.TimeOptions{Interval: time.Hour, NIntervals: 3})
	require.NoError(t, err)
	dev := &device{}
	var finalized atomic.Int32
	s, err := NewScanner(tp, dev, dev, processor.NewPairs(),
		WithSettings(fastSettings()),
		WithActions(counter(t, domain.HookFinalization, &finalized)),
	)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := s.DiscreteScan(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool { return len(dev.Writes()) == 1 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Abort(context.Background()))

	select {
	case err := <-done:
		assert.ErrorIs(t, err, domain.ErrUserAbort)
		var abort *domain.AbortError
		require.ErrorAs(t, err, &abort)
		assert.Equal(t, 3, abort.Total)
	case <-time.After(2 * time.Second):
		t.Fatal("abort waited for the next tick")
	}
	assert.Equal(t, int32(1), finalized.Load())
	assert.Len(t, dev.Writes(), 1)
}
