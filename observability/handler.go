package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the HTTP handler that renders registry in Prometheus text
// exposition format, for mounting at "/metrics".
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// NewRegistry builds a fresh, independent prometheus.Registry and the Metrics
// bound to it. Use this (rather than New, which binds to the process-global
// DefaultRegisterer) whenever more than one Metrics instance must coexist,
// such as in tests.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewWithRegistry(reg)
}
