package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picker",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "picker",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	queueEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picker",
			Subsystem: "queue",
			Name:      "operations_enqueued_total",
			Help:      "Operations accepted into a lane buffer.",
		},
		[]string{"lane", "op_type"},
	)
	queueReplaced = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picker",
			Subsystem: "queue",
			Name:      "operations_replaced_total",
			Help:      "Buffered operations overwritten by a later write to the same key.",
		},
		[]string{"lane", "op_type"},
	)
	queueBatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picker",
			Subsystem: "queue",
			Name:      "batches_flushed_total",
			Help:      "Batches handed to a lane handler.",
		},
		[]string{"lane"},
	)
	queueFlushDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "picker",
			Subsystem: "queue",
			Name:      "flush_duration_seconds",
			Help:      "Time spent applying a batch.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"lane"},
	)
	itemOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picker",
			Subsystem: "items",
			Name:      "outcomes_total",
			Help:      "Applied and skipped operations by type.",
		},
		[]string{"op_type", "outcome"},
	)
	itemCounts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "picker",
			Subsystem: "items",
			Name:      "count",
			Help:      "Current identifier counts by set.",
		},
		[]string{"set"},
	)
)

// RegisterMetrics registers every collector with the default registry. Safe
// to call repeatedly.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			queueEnqueued,
			queueReplaced,
			queueBatches,
			queueFlushDuration,
			itemOutcomes,
			itemCounts,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func RecordEnqueue(lane, opType string, replaced bool) {
	RegisterMetrics()
	queueEnqueued.WithLabelValues(lane, opType).Inc()
	if replaced {
		queueReplaced.WithLabelValues(lane, opType).Inc()
	}
}

func RecordFlush(lane string, duration time.Duration) {
	RegisterMetrics()
	queueBatches.WithLabelValues(lane).Inc()
	queueFlushDuration.WithLabelValues(lane).Observe(duration.Seconds())
}

func RecordOutcome(opType string, applied bool) {
	RegisterMetrics()
	outcome := "skipped"
	if applied {
		outcome = "applied"
	}
	itemOutcomes.WithLabelValues(opType, outcome).Inc()
}

func RecordItemCounts(universe, selected, available int) {
	RegisterMetrics()
	itemCounts.WithLabelValues("universe").Set(float64(universe))
	itemCounts.WithLabelValues("selected").Set(float64(selected))
	itemCounts.WithLabelValues("available").Set(float64(available))
}
