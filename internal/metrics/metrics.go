package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_db_query_duration_seconds",
			Help:    "Duration of catalog read queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "summary", "list", "trending", "new_releases", "search"
	)

	DBTxRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_db_tx_retries_total",
			Help: "Transactions retried after a deadlock or lock wait timeout",
		},
	)

	// Ingestion
	IngestRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ingest_records_total",
			Help: "Records processed by the ingestion engine by outcome",
		},
		[]string{"kind", "outcome"}, // outcome: inserted, updated, skipped, failed
	)

	IngestPagesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_ingest_pages_failed_total",
			Help: "Listing pages that still failed after all retries",
		},
		[]string{"kind"},
	)

	IngestRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_ingest_run_duration_seconds",
			Help:    "Wall time of a complete ingestion run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_source_requests_total",
			Help: "HTTP requests made to the external catalog source",
		},
		[]string{"endpoint", "status"},
	)

	SourceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_source_breaker_state",
			Help: "Circuit breaker state of the catalog source (0 closed, 1 half-open, 2 open)",
		},
	)

	// HTTP adapter
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_api_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

// ObserveQuery records the duration of a named read query started at start.
func ObserveQuery(query string, start time.Time) {
	DBQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}

// RecordAPIRequest counts one served request.
func RecordAPIRequest(method, route string, status int) {
	APIRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
