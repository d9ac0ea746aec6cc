package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the agent's Prometheus registry. Module metrics register
// against it through Registerer so tests can use isolated registries.
type Registry struct {
	reg  *prometheus.Registry
	Info *prometheus.GaugeVec
}

// New creates a registry preloaded with Go runtime and process collectors
// and an info gauge describing this tab.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg: reg,
		Info: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "storefront_agent_info",
			Help: "Constant 1, labelled with the agent's origin and drivers",
		}, []string{"origin", "storage", "broadcast"}),
	}
}

// Registerer returns the registerer modules should use.
func (r *Registry) Registerer() prometheus.Registerer { return r.reg }

// Gatherer exposes the registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
