package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics are registered on a registry owned by one handler so several
// handlers can coexist in a process.
type metrics struct {
	registry      *prometheus.Registry
	computed      *prometheus.CounterVec
	failed        *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	warnings      *prometheus.CounterVec
	premiumCount  prometheus.Counter
	exposureScore prometheus.Histogram
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &metrics{
		registry: reg,
		computed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimate_valuations_computed_total",
				Help: "Total number of property valuations computed",
			},
			[]string{"endpoint"},
		),
		failed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimate_requests_failed_total",
				Help: "Total number of valuation requests that failed",
			},
			[]string{"endpoint", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "estimate_request_duration_seconds",
				Help:    "Duration of valuation requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
			[]string{"endpoint"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "estimate_request_warnings_total",
				Help: "Total number of request warnings reported",
			},
			[]string{"endpoint"},
		),
		premiumCount: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "estimate_premium_register_total",
				Help: "Total number of valuations classified in the premium register",
			},
		),
		exposureScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "estimate_exposure_capital_score",
				Help:    "Distribution of computed exposure capital scores",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
