package aggregate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kishansoni2726/multi-cloud-steampipe-console/domain/inventory"
)

// Metrics records engine and decode activity. A nil *Metrics records nothing.
type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	dropped  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_engine_queries_total",
				Help: "Engine queries by provider, domain and outcome (ok or failure kind).",
			},
			[]string{"provider", "domain", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "inventory_engine_query_duration_seconds",
				Help:    "Wall-clock duration of engine queries.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider", "domain"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_decode_dropped_rows_total",
				Help: "Rows dropped while decoding engine output.",
			},
			[]string{"provider", "domain"},
		),
	}
	reg.MustRegister(m.queries, m.duration, m.dropped)
	return m
}

func (m *Metrics) observeQuery(q inventory.Query, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(string(q.Provider), string(q.Domain), outcome).Inc()
	m.duration.WithLabelValues(string(q.Provider), string(q.Domain)).Observe(d.Seconds())
}

func (m *Metrics) observeDropped(q inventory.Query, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.WithLabelValues(string(q.Provider), string(q.Domain)).Add(float64(n))
}
