package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/sweep/pkg/domain"
)

// Metrics holds the scanner collectors.
type Metrics struct {
	positions *prometheus.CounterVec
	retries   *prometheus.CounterVec
	scans     *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	state     *prometheus.GaugeVec
	scan      string
}

// NewMetrics creates the collectors for the named scan and registers them on reg.
func NewMetrics(reg prometheus.Registerer, scan string) (*Metrics, error) {
	m := &Metrics{
		scan: scan,
		positions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_positions_total",
			Help: "Positions whose data was recorded.",
		}, []string{"scan"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_retries_total",
			Help: "Samples discarded because a Retry-policy condition failed.",
		}, []string{"scan"}),
		scans: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_scans_total",
			Help: "Finished scans by terminal state.",
		}, []string{"scan", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_position_duration_seconds",
			Help:    "Time from the write to the recorded sample of one position.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"scan"}),
		state: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sweep_scan_state",
			Help: "1 for the current state of the scanner, 0 otherwise.",
		}, []string{"scan", "state"}),
	}

	for _, c := range []prometheus.Collector{m.positions, m.retries, m.scans, m.duration, m.state} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateChange: func(_ context.Context, e *domain.StateEvent) {
			if e.From != "" {
				m.state.WithLabelValues(m.scan, string(e.From)).Set(0)
			}
			m.state.WithLabelValues(m.scan, string(e.To)).Set(1)
		},
		OnPosition: func(_ context.Context, e *domain.PositionEvent) {
			m.positions.WithLabelValues(m.scan).Inc()
			m.duration.WithLabelValues(m.scan).Observe(e.Duration.Seconds())
		},
		OnRetry: func(context.Context, *domain.RetryEvent) {
			m.retries.WithLabelValues(m.scan).Inc()
		},
		OnComplete: func(_ context.Context, e *domain.CompleteEvent) {
			m.scans.WithLabelValues(m.scan, string(e.State)).Inc()
		},
	}
}
