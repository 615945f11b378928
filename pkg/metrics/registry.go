// Package metrics instruments batch delineation runs. There is no serving
// surface; after a run the registry is dumped in the Prometheus textfile
// collector format for a node exporter to pick up.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the instruments for one batch run.
type Registry struct {
	registry *prometheus.Registry

	GraphNodesTotal prometheus.Gauge
	GraphEdgesTotal prometheus.Gauge

	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram

	ResolutionsTotal *prometheus.CounterVec
	ResolvedEdges    prometheus.Counter
	UnresolvedEdges  prometheus.Counter

	DelineationsTotal    *prometheus.CounterVec
	DelineationDuration  *prometheus.HistogramVec
	CatchmentArea        prometheus.Histogram
	StormcatchmentSinks  prometheus.Histogram
	ExpansionsPerRequest prometheus.Histogram
}

// NewRegistry creates a registry with all instruments registered.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "stormcatchments_graph_nodes_total",
			Help: "Number of structure nodes in the built network graph",
		},
	)
	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "stormcatchments_graph_edges_total",
			Help: "Number of pipe edges in the built network graph",
		},
	)

	r.BuildsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormcatchments_builds_total",
			Help: "Graph builds by status",
		},
		[]string{"status"},
	)
	r.BuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stormcatchments_build_duration_seconds",
			Help:    "Graph build duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)

	r.ResolutionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormcatchments_direction_resolutions_total",
			Help: "Direction resolution runs by method and status",
		},
		[]string{"method", "status"},
	)
	r.ResolvedEdges = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "stormcatchments_resolved_edges_total",
			Help: "Edges whose direction was resolved",
		},
	)
	r.UnresolvedEdges = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "stormcatchments_unresolved_edges_total",
			Help: "Edges left unresolved in ambiguous components",
		},
	)

	r.DelineationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "stormcatchments_delineations_total",
			Help: "Delineations by kind (surface or storm) and status",
		},
		[]string{"kind", "status"},
	)
	r.DelineationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stormcatchments_delineation_duration_seconds",
			Help:    "Delineation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"kind"},
	)
	r.CatchmentArea = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stormcatchments_catchment_area",
			Help:    "Delineated catchment area in squared map units",
			Buckets: prometheus.ExponentialBuckets(100, 10, 7),
		},
	)
	r.StormcatchmentSinks = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stormcatchments_contributing_sinks",
			Help:    "Contributing sink nodes per stormcatchment",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)
	r.ExpansionsPerRequest = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stormcatchments_expansions_per_delineation",
			Help:    "Surface delineations performed per stormcatchment request",
			Buckets: []float64{1, 2, 3, 5, 10, 25, 50},
		},
	)

	return r
}

// RecordBuild records a graph build.
func (r *Registry) RecordBuild(status string, duration time.Duration, nodes, edges int) {
	r.BuildsTotal.WithLabelValues(status).Inc()
	r.BuildDuration.Observe(duration.Seconds())
	if status == "ok" {
		r.GraphNodesTotal.Set(float64(nodes))
		r.GraphEdgesTotal.Set(float64(edges))
	}
}

// RecordResolution records a direction resolution run.
func (r *Registry) RecordResolution(method, status string, resolved, unresolved int) {
	r.ResolutionsTotal.WithLabelValues(method, status).Inc()
	r.ResolvedEdges.Add(float64(resolved))
	r.UnresolvedEdges.Add(float64(unresolved))
}

// RecordSurfaceDelineation records a naive surface catchment delineation.
func (r *Registry) RecordSurfaceDelineation(status string, duration time.Duration, area float64) {
	r.DelineationsTotal.WithLabelValues("surface", status).Inc()
	r.DelineationDuration.WithLabelValues("surface").Observe(duration.Seconds())
	if status == "ok" {
		r.CatchmentArea.Observe(area)
	}
}

// RecordStormcatchment records a network-aware delineation.
func (r *Registry) RecordStormcatchment(status string, duration time.Duration, area float64, sinks, expansions int) {
	r.DelineationsTotal.WithLabelValues("storm", status).Inc()
	r.DelineationDuration.WithLabelValues("storm").Observe(duration.Seconds())
	if status == "ok" {
		r.CatchmentArea.Observe(area)
		r.StormcatchmentSinks.Observe(float64(sinks))
		r.ExpansionsPerRequest.Observe(float64(expansions))
	}
}

// Gatherer exposes the underlying registry for tests and custom sinks.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile dumps the registry in the textfile collector format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
