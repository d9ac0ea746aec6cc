package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks session transitions for one tab.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Active      prometheus.Gauge
	Corrupted   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_session_transitions_total",
			Help: "Session changes, by cause (login, profile, logout, expired, remote)",
		}, []string{"cause"}),
		Active: f.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_session_active",
			Help: "1 when this tab holds a signed-in session",
		}),
		Corrupted: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_session_corrupted_records_total",
			Help: "Persisted session records discarded because they could not be parsed",
		}),
	}
}
