// Package memory provides a simulated device for dry runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/aretw0/sweep/pkg/domain"
	"github.com/aretw0/sweep/pkg/ports"
)

// ObserveFunc computes the observables from the current knob values.
type ObserveFunc func(knobs domain.Position) domain.Measurement

// Device simulates a control system: knobs hold the last written value,
// observables are derived from the knobs and monitored channels can be set
// (or scripted) at runtime. Safe for concurrent use.
type Device struct {
	mu       sync.Mutex
	knobs    []string
	position domain.Position
	observe  ObserveFunc
	monitors []string
	values   map[string]any
	scripted map[string][]any
	lag      time.Duration
	clock    clock.Clock

	writes int
	reads  int
}

var (
	_ ports.Writer          = (*Device)(nil)
	_ ports.Reader          = (*Device)(nil)
	_ ports.ConditionReader = (*Device)(nil)
)

// Option configures a Device.
type Option func(*Device)

// WithObservable sets how observables are computed. By default a read
// returns the knob values.
func WithObservable(fn ObserveFunc) Option {
	return func(d *Device) {
		d.observe = fn
	}
}

// WithMonitors declares the monitored channels and their initial values.
func WithMonitors(initial map[string]any, order ...string) Option {
	return func(d *Device) {
		d.monitors = append(d.monitors, order...)
		for k, v := range initial {
			d.values[k] = v
		}
	}
}

// WithLag makes every write take d before the knobs report the new value.
func WithLag(d time.Duration) Option {
	return func(dev *Device) {
		dev.lag = d
	}
}

// WithInitial sets the knob values before the first write.
func WithInitial(pos domain.Position) Option {
	return func(d *Device) {
		d.position = pos.Clone()
	}
}

// WithClock replaces the clock used for the write lag.
func WithClock(c clock.Clock) Option {
	return func(d *Device) {
		d.clock = c
	}
}

// NewDevice creates a device with the given knob channel names.
func NewDevice(knobs []string, opts ...Option) (*Device, error) {
	d := &Device{
		knobs:    append([]string(nil), knobs...),
		values:   make(map[string]any),
		scripted: make(map[string][]any),
		clock:    clock.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.position == nil {
		d.position = make(domain.Position, len(knobs))
	}
	if len(d.position) != len(knobs) {
		return nil, domain.Configf("initial", "expected %d knob values, got %d", len(knobs), len(d.position))
	}
	for _, id := range d.monitors {
		if _, ok := d.values[id]; !ok {
			return nil, domain.Configf("monitors", "monitor %q has no initial value", id)
		}
	}
	return d, nil
}

// Write moves the knobs to pos, honouring the lag and ctx.
func (d *Device) Write(ctx context.Context, pos domain.Position) error {
	if len(pos) != len(d.knobs) {
		return fmt.Errorf("device has %d knobs, position has %d axes", len(d.knobs), len(pos))
	}

	if d.lag > 0 {
		t := d.clock.NewTimer(d.lag)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C():
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = pos.Clone()
	d.writes++
	return nil
}

// Read returns the observables at the current knob values.
func (d *Device) Read(ctx context.Context) (domain.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	pos := d.position.Clone()
	d.reads++
	d.mu.Unlock()

	if d.observe != nil {
		return d.observe(pos), nil
	}
	m := make(domain.Measurement, len(pos))
	for i, v := range pos {
		m[i] = v
	}
	return m, nil
}

// ReadConditions returns the monitored values in declaration order.
// Scripted values are consumed first, one per read.
func (d *Device) ReadConditions(ctx context.Context) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]any, len(d.monitors))
	for i, id := range d.monitors {
		if queue := d.scripted[id]; len(queue) > 0 {
			out[i] = queue[0]
			d.scripted[id] = queue[1:]
			continue
		}
		out[i] = d.values[id]
	}
	return out, nil
}

// Set changes the steady value of a monitored channel.
func (d *Device) Set(channel string, value any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[channel] = value
}

// Script queues one-shot values for a monitored channel, returned by the
// next reads before the steady value.
func (d *Device) Script(channel string, values ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scripted[channel] = append(d.scripted[channel], values...)
}

// Position returns the current knob values.
func (d *Device) Position() domain.Position {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position.Clone()
}

// Knobs returns the knob channel names.
func (d *Device) Knobs() []string {
	return append([]string(nil), d.knobs...)
}

// Monitors returns the monitored channel names.
func (d *Device) Monitors() []string {
	return append([]string(nil), d.monitors...)
}

// Stats returns how many writes and reads the device served.
func (d *Device) Stats() (writes, reads int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes, d.reads
}
