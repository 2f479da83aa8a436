// Package observability holds the Prometheus metrics and OpenTelemetry
// tracer used by the extraction pipeline.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	namespace = "statement_extractor"
	// TracerName identifies spans emitted by this module.
	TracerName = "github.com/FACorreiaa/statement-extractor"
)

// Metrics are the pipeline's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	documents     *prometheus.CounterVec
	transactions  prometheus.Counter
	enrichments   prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry, together with
// the Go and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"stage"}),
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Processed documents by outcome status.",
		}, []string{"status"}),
		transactions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Transactions emitted across all documents.",
		}),
		enrichments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichments_total",
			Help:      "Transactions whose entity fields were filled by the enricher.",
		}),
	}
}

// ObserveStage records one stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CountDocument records a finished document.
func (m *Metrics) CountDocument(status string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(status).Inc()
}

// CountTransactions adds emitted transactions.
func (m *Metrics) CountTransactions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.transactions.Add(float64(n))
}

// CountEnrichments adds enriched transactions.
func (m *Metrics) CountEnrichments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.enrichments.Add(float64(n))
}

// Gatherer exposes the registry, mainly for tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Tracer returns the module tracer from the global provider. Without a
// configured provider the spans are no-ops.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
