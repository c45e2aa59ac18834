package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SlotSearchLatency records availability-search latency.
	SlotSearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meetsync_slot_search_latency_seconds",
		Help:    "Latency of availability slot searches in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// LockWaitLatency records how long callers wait to enter a keyed
	// critical section.
	LockWaitLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meetsync_lock_wait_seconds",
		Help:    "Time spent waiting to acquire a keyed lock",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"kind"})

	// LockTimeouts counts lock acquisitions that gave up.
	LockTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetsync_lock_timeouts_total",
		Help: "Total number of keyed-lock acquisition timeouts",
	}, []string{"kind"})

	// ExternalCallsInFlight gauges concurrent calendar-provider calls.
	ExternalCallsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meetsync_external_calls_in_flight",
		Help: "Number of in-flight external calendar provider calls",
	})

	// DebounceCollapsed counts triggers absorbed by an already-pending
	// debounce window.
	DebounceCollapsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meetsync_debounce_collapsed_total",
		Help: "Total number of debounced triggers collapsed into a pending run",
	})

	// ProposalTransitions counts proposal state-machine transitions.
	ProposalTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetsync_proposal_transitions_total",
		Help: "Total number of meeting proposal transitions by action",
	}, []string{"action"})

	// NotificationFailures counts best-effort notifications that failed.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meetsync_notification_failures_total",
		Help: "Total number of failed best-effort notifications",
	}, []string{"kind"})
)

// ObserveLockWait records the wait for a lock of the given kind.
func ObserveLockWait(kind string, start time.Time) {
	LockWaitLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
