package cart

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks cart synchronization for one tab.
type Metrics struct {
	Refreshes     *prometheus.CounterVec
	Mutations     *prometheus.CounterVec
	Rollbacks     *prometheus.CounterVec
	TotalQuantity prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_refreshes_total",
			Help: "Cart refreshes, by outcome (applied, discarded, failed, anonymous)",
		}, []string{"outcome"}),
		Mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations, by operation and outcome",
		}, []string{"operation", "outcome"}),
		Rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_rollbacks_total",
			Help: "Optimistic updates reverted, by operation and kind (full, line or dropped)",
		}, []string{"operation", "kind"}),
		TotalQuantity: f.NewGauge(prometheus.GaugeOpts{
			Name: "storefront_cart_total_quantity",
			Help: "Items in the local cart snapshot",
		}),
	}
}
