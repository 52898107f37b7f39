// Package metrics exposes Prometheus counters for landing page traffic.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "landing"

type Metrics struct {
	registry  *prometheus.Registry
	renders   *prometheus.CounterVec
	mutations *prometheus.CounterVec
	syncs     *prometheus.CounterVec
	reloads   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_renders_total",
			Help:      "Public landing page responses by cache result (hit, miss, bypass).",
		}, []string{"cache"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_mutations_total",
			Help:      "Curation operations on landing pages.",
		}, []string{"operation"}),
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "datacite_sync_total",
			Help:      "DataCite metadata pushes by outcome.",
		}, []string{"status"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "template_reloads_total",
			Help:      "Template registry reloads by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.renders,
		m.mutations,
		m.syncs,
		m.reloads,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Render(cache string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(cache).Inc()
}

func (m *Metrics) Mutation(operation string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) Sync(status string) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(status).Inc()
}

func (m *Metrics) Reload(result string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
}
