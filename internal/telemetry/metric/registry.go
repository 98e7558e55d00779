package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles a private Prometheus registry with the refmap
// collector, keeping the stress tool off the global default registry.
type Registry struct {
	prom *prometheus.Registry

	// Maps is the refmap collector; register map sources on it.
	Maps *Collector
}

// NewRegistry creates a registry with the refmap collector and the
// standard Go runtime collector installed.
func NewRegistry() *Registry {
	r := &Registry{
		prom: prometheus.NewRegistry(),
		Maps: NewCollector(),
	}
	r.prom.MustRegister(r.Maps)
	r.prom.MustRegister(collectors.NewGoCollector())
	return r
}

// Handler returns an HTTP handler serving the /metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prom, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for testing.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.prom
}
