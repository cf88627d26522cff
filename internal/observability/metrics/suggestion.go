package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SuggestionMetrics records the worker's suggestion pipeline behavior:
// request outcomes, latency, candidate volume and signal degradations.
type SuggestionMetrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	requestsInFlight   prometheus.Gauge
	combinedCandidates *prometheus.HistogramVec
	signalsUsed        *prometheus.HistogramVec
	fallbacksTotal     *prometheus.CounterVec
	genesFound         *prometheus.HistogramVec
}

func NewSuggestionMetrics(service string) *SuggestionMetrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "requests_total",
			Help:      "Total suggestion requests by candidate domain and status.",
		},
		[]string{"service", "domain", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "request_duration_seconds",
			Help:      "Suggestion computation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "domain"},
	)
	requestsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "requests_in_flight",
			Help:      "Number of suggestion requests currently being computed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	combinedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "combined_candidates",
			Help:      "Distribution of combined suggestions per request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "domain"},
	)
	signalsUsed := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "signals_used",
			Help:      "Distribution of scoring signals active per request.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service", "domain"},
	)
	fallbacksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "signal_fallbacks_total",
			Help:      "Total requests where a scoring signal was unavailable and the request degraded.",
		},
		[]string{"service", "domain", "signal"},
	)
	genesFound := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kemapper",
			Subsystem: "suggest",
			Name:      "ke_genes_found",
			Help:      "Distribution of gene symbols resolved per key event.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service", "domain"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		requestsInFlight,
		combinedCandidates,
		signalsUsed,
		fallbacksTotal,
		genesFound,
	)

	return &SuggestionMetrics{
		registry:           registry,
		requestsTotal:      requestsTotal,
		requestDuration:    requestDuration,
		requestsInFlight:   requestsInFlight,
		combinedCandidates: combinedCandidates,
		signalsUsed:        signalsUsed,
		fallbacksTotal:     fallbacksTotal,
		genesFound:         genesFound,
	}
}

func (m *SuggestionMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *SuggestionMetrics) StartRequest() {
	m.requestsInFlight.Inc()
}

func (m *SuggestionMetrics) FinishRequest(service, domain string, duration time.Duration, failed bool) {
	m.requestsInFlight.Dec()

	status := "success"
	if failed {
		status = "error"
	}
	m.requestsTotal.WithLabelValues(service, domain, status).Inc()
	m.requestDuration.WithLabelValues(service, domain).Observe(duration.Seconds())
}

func (m *SuggestionMetrics) ObserveResult(service, domain string, combined, signals, genes int) {
	m.combinedCandidates.WithLabelValues(service, domain).Observe(float64(combined))
	m.signalsUsed.WithLabelValues(service, domain).Observe(float64(signals))
	m.genesFound.WithLabelValues(service, domain).Observe(float64(genes))
}

func (m *SuggestionMetrics) RecordSignalFallback(service, domain, signal string) {
	m.fallbacksTotal.WithLabelValues(service, domain, signal).Inc()
}
