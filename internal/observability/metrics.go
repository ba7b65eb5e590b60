// Package observability defines the Prometheus metrics of the toolkit service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bomberos"

// Search outcomes.
const (
	OutcomeHit    = "hit"
	OutcomeEmpty  = "empty"
	OutcomeHidden = "hidden"
)

// Metrics holds the counters, histograms and gauges of the service.
type Metrics struct {
	Searches      *prometheus.CounterVec // labels: source={http,mcp,session,cli}, outcome={hit,empty,hidden}
	SearchResults prometheus.Histogram
	Conversions   *prometheus.CounterVec // labels: category, outcome={ok,error}
	CatalogReload prometheus.Counter
	CatalogSize   prometheus.Gauge
	SSEClients    prometheus.Gauge
	Sessions      prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg. A nil reg leaves
// them unregistered, which suits tests and one-shot CLI commands.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Catalogue searches by source and outcome.",
		}, []string{"source", "outcome"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of records returned per executed search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Unit conversions by category and outcome.",
		}, []string{"category", "outcome"}),
		CatalogReload: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalogue snapshots installed from the watched file.",
		}),
		CatalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Records in the active catalogue snapshot.",
		}),
		SSEClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected Server-Sent Events clients.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "search_sessions",
			Help:      "Open debounced search sessions.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Searches,
			m.SearchResults,
			m.Conversions,
			m.CatalogReload,
			m.CatalogSize,
			m.SSEClients,
			m.Sessions,
		)
	}

	return m
}
