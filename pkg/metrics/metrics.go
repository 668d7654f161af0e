// Package metrics provides Prometheus metrics for the oracle feeder.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// VotesSubmittedTotal counts broadcasts that were confirmed included.
	VotesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oracle_votes_submitted_total",
			Help: "Total number of confirmed oracle vote transactions",
		},
	)

	// TicksSkippedTotal counts voting loop ticks that were skipped.
	TicksSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_ticks_skipped_total",
			Help: "Total number of voting loop ticks skipped, by reason",
		},
		[]string{"reason"},
	)

	// TxConfirmDuration measures time from broadcast to confirmed inclusion.
	TxConfirmDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_tx_confirm_duration_seconds",
			Help:    "Time between transaction broadcast and confirmed inclusion",
			Buckets: prometheus.LinearBuckets(1, 3, 15),
		},
	)

	// PriceSourceErrorsTotal counts failed price source queries.
	PriceSourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_source_errors_total",
			Help: "Total number of failed or stale price source responses",
		},
		[]string{"source"},
	)

	// SourceHealth reports the health of price server sources (1=healthy).
	SourceHealth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "source_health",
			Help: "Health status of price sources (1=healthy, 0=unhealthy)",
		},
		[]string{"source"},
	)

	// AggregationDuration measures price aggregation latency.
	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "price_aggregation_duration_seconds",
			Help:    "Duration of price aggregation operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(
		VotesSubmittedTotal,
		TicksSkippedTotal,
		TxConfirmDuration,
		PriceSourceErrorsTotal,
		SourceHealth,
		AggregationDuration,
	)
}

// RecordVoteSubmitted records a confirmed vote transaction.
func RecordVoteSubmitted() {
	VotesSubmittedTotal.Inc()
}

// RecordTickSkip records a skipped voting loop tick.
func RecordTickSkip(reason string) {
	TicksSkippedTotal.WithLabelValues(reason).Inc()
}

// ObserveConfirmDuration records the broadcast-to-inclusion latency.
func ObserveConfirmDuration(d time.Duration) {
	TxConfirmDuration.Observe(d.Seconds())
}

// RecordSourceError records a failed price source query.
func RecordSourceError(source string) {
	PriceSourceErrorsTotal.WithLabelValues(source).Inc()
}

// SetSourceHealth sets the health gauge for a price server source.
func SetSourceHealth(source string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	SourceHealth.WithLabelValues(source).Set(v)
}

// RecordAggregation records an aggregation pass duration.
func RecordAggregation(method string, d time.Duration) {
	AggregationDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ServeHTTP serves the /metrics endpoint on the given address. It blocks.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server.ListenAndServe()
}
