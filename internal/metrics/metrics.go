package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockpulse"

// Metrics holds the Prometheus counters describing aggregation outcomes.
// All methods are safe on a nil receiver.
type Metrics struct {
	AggregationsTotal   *prometheus.CounterVec
	ChartSourceTotal    *prometheus.CounterVec
	AnalysisSourceTotal *prometheus.CounterVec
	UpstreamErrorsTotal *prometheus.CounterVec
}

// New creates and registers all counters. A nil registerer means the default one.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AggregationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregations_total",
			Help:      "Stock aggregation requests by outcome (ok, failed).",
		}, []string{"outcome"}),
		ChartSourceTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chart_source_total",
			Help:      "Charts served by source (candles, synthetic).",
		}, []string{"source"}),
		AnalysisSourceTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_source_total",
			Help:      "Analyses served by source (generative, fallback).",
		}, []string{"source"}),
		UpstreamErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_errors_total",
			Help:      "Absorbed market-data failures by endpoint.",
		}, []string{"endpoint"}),
	}
}

func (m *Metrics) ObserveAggregation(outcome string) {
	if m == nil {
		return
	}
	m.AggregationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveChart(synthetic bool) {
	if m == nil {
		return
	}
	source := "candles"
	if synthetic {
		source = "synthetic"
	}
	m.ChartSourceTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveAnalysis(source string) {
	if m == nil {
		return
	}
	m.AnalysisSourceTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveUpstreamError(endpoint string) {
	if m == nil {
		return
	}
	m.UpstreamErrorsTotal.WithLabelValues(endpoint).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
