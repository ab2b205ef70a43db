// Package metrics provides Prometheus metrics for the bramble pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsImportedTotal tracks imported records by resource type and status
	RecordsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "import",
			Name:      "records_total",
			Help:      "Total number of records imported by resource type and status",
		},
		[]string{"resource_type", "status"},
	)

	// ImportDuration tracks single record import duration in seconds
	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "import",
			Name:      "record_duration_seconds",
			Help:      "Duration of single record imports in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"resource_type"},
	)

	// EdgesWrittenTotal tracks relation edges by join table and outcome
	EdgesWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "relations",
			Name:      "edges_total",
			Help:      "Total number of relation edges processed by join table and outcome",
		},
		[]string{"join_table", "outcome"},
	)

	// FrontierEnqueuedTotal tracks items added to the crawl frontier
	FrontierEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "crawl",
			Name:      "frontier_enqueued_total",
			Help:      "Total number of crawl frontier items enqueued",
		},
		[]string{"resource_type"},
	)

	// PagesExportedTotal tracks rendered pages handed to a sink
	PagesExportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "export",
			Name:      "pages_total",
			Help:      "Total number of pages exported by resource type",
		},
		[]string{"resource_type"},
	)

	// ContentAPIRequestsTotal tracks outbound content API requests
	ContentAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "content_api",
			Name:      "requests_total",
			Help:      "Total number of content API requests",
		},
		[]string{"endpoint", "status_code"},
	)

	// ContentAPIRequestDuration tracks outbound content API request duration
	ContentAPIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bramble",
			Subsystem: "content_api",
			Name:      "request_duration_seconds",
			Help:      "Duration of content API requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bramble",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)

// RecordImport records a record import metric
func RecordImport(resourceType, status string, durationSeconds float64) {
	RecordsImportedTotal.WithLabelValues(resourceType, status).Inc()
	ImportDuration.WithLabelValues(resourceType).Observe(durationSeconds)
}

// RecordEdge records a relation edge write
func RecordEdge(joinTable string, inserted bool) {
	outcome := "existing"
	if inserted {
		outcome = "inserted"
	}
	EdgesWrittenTotal.WithLabelValues(joinTable, outcome).Inc()
}

// RecordContentAPIRequest records an outbound content API request
func RecordContentAPIRequest(endpoint, statusCode string, durationSeconds float64) {
	ContentAPIRequestsTotal.WithLabelValues(endpoint, statusCode).Inc()
	ContentAPIRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}
