package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the process-wide tracer for resolution spans.
var Tracer trace.Tracer = otel.Tracer("glot")

// Metrics definitions
var (
	ResolutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glot_resolution_seconds",
		Help:    "Time spent resolving a buffer identity to a language.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	ResolutionFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glot_resolution_fallback_total",
		Help: "Total number of identities that fell back to plain text.",
	})

	RootWalkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glot_root_walk_seconds",
		Help:    "Time spent walking ancestors for project root markers.",
		Buckets: prometheus.DefBuckets,
	})

	RootNotFoundTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glot_root_not_found_total",
		Help: "Total number of root walks that found no marker.",
	})

	InjectionSpans = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glot_injection_spans",
		Help:    "Resolved injection spans per buffer resolution pass.",
		Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
	})

	InjectionDepthReached = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glot_injection_depth_reached",
		Help:    "Deepest nesting level reached per resolution pass.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
	})

	StaleResolutionsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glot_stale_resolutions_discarded_total",
		Help: "Background resolution results dropped because a newer buffer version finished first.",
	})

	ResolutionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glot_resolution_queue_depth",
		Help: "Current number of queued background resolution jobs.",
	})

	ResolutionJobsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glot_resolution_jobs_dropped_total",
		Help: "Background resolution jobs dropped due to queue backpressure.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glot_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)
