// Package metrics holds the Prometheus collectors and the tracer shared by
// the sync, rebuild and query paths.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeDropped   = "dropped"
)

// Registry is the registry every collector here is registered on.
var Registry = prometheus.NewRegistry()

var (
	SyncTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmatch_sync_total",
			Help: "Vector synchronizations by entity, action and outcome",
		},
		[]string{"entity", "action", "outcome"},
	)
	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crewmatch_sync_queue_depth",
			Help: "Write events waiting in the background sync queue",
		},
	)
	RebuildRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crewmatch_rebuild_records_total",
			Help: "Records processed by bulk rebuilds by entity and outcome",
		},
		[]string{"entity", "outcome"},
	)
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crewmatch_query_duration_seconds",
			Help:    "Latency of semantic searches including embedding",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"collection"},
	)
	CollectionEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "crewmatch_collection_entries",
			Help: "Entries in each vector collection after the last rebuild",
		},
		[]string{"collection"},
	)
)

// Tracer is used for spans around search, sync and rebuild.
var Tracer = otel.Tracer("github.com/ziadkadry99/crewmatch")

func init() {
	Registry.MustRegister(
		SyncTotal, SyncQueueDepth, RebuildRecords, QueryDuration, CollectionEntries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
