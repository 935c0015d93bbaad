package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the pipeline's Prometheus instruments.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	Submissions *prometheus.CounterVec

	QueueDepth prometheus.Gauge

	DrainPasses   prometheus.Counter
	DrainSuccess  prometheus.Counter
	DrainFailures prometheus.Counter
}

// NewMetrics registers the pipeline metrics against reg, defaulting to the
// global Prometheus registry when nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_cache_hits_total",
			Help: "Submissions answered from the result cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_cache_misses_total",
			Help: "Submissions that missed the result cache.",
		}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "snapsync_submissions_total",
			Help: "Completed submissions, labeled by result origin.",
		}, []string{"origin"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "snapsync_queue_depth",
			Help: "Items currently awaiting retry in the pending queue.",
		}),
		DrainPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_drain_passes_total",
			Help: "Queue drain passes started.",
		}),
		DrainSuccess: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_drain_items_succeeded_total",
			Help: "Queue items reconciled by a drain pass.",
		}),
		DrainFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "snapsync_drain_items_failed_total",
			Help: "Queue item retry attempts that failed during a drain pass.",
		}),
	}
}
