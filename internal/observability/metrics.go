package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the indexer.
type Metrics struct {
	// --- Core ---
	EventsHandled *prometheus.CounterVec
	EventsFailed  *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	Anomalies     *prometheus.CounterVec
	LastBlock     prometheus.Gauge

	// --- Store ---
	StoreOps      *prometheus.CounterVec
	StoreErrors   *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// --- Ingestion ---
	IngestReceived    *prometheus.CounterVec
	IngestParseErrors *prometheus.CounterVec
	IngestDuplicates  *prometheus.CounterVec
	IngestOutOfOrder  prometheus.Counter
	DedupLRUSize      prometheus.Gauge
	DedupLRUEvictions prometheus.Counter

	// --- Change feed ---
	ChangesEmitted  *prometheus.CounterVec
	ChangeFeedDrops prometheus.Counter
	PublishErrors   prometheus.Counter
	ChannelSize     *prometheus.GaugeVec
	ChannelCapacity *prometheus.GaugeVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates all metrics and registers them on reg. Pass
// prometheus.DefaultRegisterer in the binary and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	handlerBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05,
	}
	storeBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.00005, 0.0001,
		0.0005, 0.001, 0.005, 0.01, 0.05,
	}

	return &Metrics{
		EventsHandled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_events_handled_total",
			Help: "Events dispatched to a handler",
		}, []string{"event_type"}),

		EventsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_events_failed_total",
			Help: "Events whose handler returned an infrastructure error",
		}, []string{"event_type"}),

		EventDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_indexer_event_duration_seconds",
			Help:    "Time to handle a single event",
			Buckets: handlerBuckets,
		}, []string{"event_type"}),

		Anomalies: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_anomalies_total",
			Help: "Non-fatal anomalies (missing referent, unknown kind, pre-existing record)",
		}, []string{"class", "entity"}),

		LastBlock: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perp_indexer_last_block",
			Help: "Block number of the last handled event",
		}),

		StoreOps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_store_operations_total",
			Help: "Keyed store operations",
		}, []string{"op", "kind"}),

		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_store_errors_total",
			Help: "Keyed store operation failures",
		}, []string{"op", "kind"}),

		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_indexer_store_duration_seconds",
			Help:    "Keyed store operation latency",
			Buckets: storeBuckets,
		}, []string{"op"}),

		IngestReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_ingest_received_total",
			Help: "Raw messages received from NATS",
		}, []string{"subject"}),

		IngestParseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_ingest_parse_errors_total",
			Help: "Messages rejected at the wire boundary",
		}, []string{"event_type"}),

		IngestDuplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_ingest_duplicates_total",
			Help: "Redeliveries dropped by the LRU filter",
		}, []string{"event_type"}),

		IngestOutOfOrder: factory.NewCounter(prometheus.CounterOpts{
			Name: "perp_indexer_ingest_out_of_order_total",
			Help: "Events delivered behind the last applied log position",
		}),

		DedupLRUSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "perp_indexer_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "perp_indexer_dedup_lru_evictions_total",
			Help: "LRU evictions",
		}),

		ChangesEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_changes_emitted_total",
			Help: "Entity changes pushed to the change feed",
		}, []string{"kind", "op"}),

		ChangeFeedDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "perp_indexer_change_feed_drops_total",
			Help: "Entity changes dropped due to a full change channel",
		}),

		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "perp_indexer_publish_errors_total",
			Help: "Change notifications that failed to publish",
		}),

		ChannelSize: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perp_indexer_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "perp_indexer_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		QueryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "perp_indexer_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perp_indexer_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}

// SetChannelMetrics updates channel occupancy gauges.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
}
