package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts broadcast traffic for one tab.
type Metrics struct {
	Published      *prometheus.CounterVec
	Delivered      *prometheus.CounterVec
	Dropped        *prometheus.CounterVec
	PublishFailure *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_broadcast_published_total",
			Help: "Events published by this tab, by kind",
		}, []string{"kind"}),
		Delivered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_broadcast_delivered_total",
			Help: "Events dispatched to subscribers, by kind and source (local or remote)",
		}, []string{"kind", "source"}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_broadcast_dropped_total",
			Help: "Channel events ignored, by reason (self or duplicate)",
		}, []string{"reason"}),
		PublishFailure: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_broadcast_publish_failures_total",
			Help: "Channel publish failures, by kind",
		}, []string{"kind"}),
	}
}
