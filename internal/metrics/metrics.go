// Package metrics registers the Prometheus metrics used by the capability
// host. Import this package (via blank import, or directly from
// cmd/caphostd) before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Invocation-level counters and histograms, recorded by the provider worker
// loop (see worker.go) and the host façade's actor-call path.
var (
	// InvocationsTotal counts completed invocations labelled by binding,
	// capability_id, target ("capability"/"actor") and status
	// ("ok"/"error").
	InvocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caphost_invocations_total",
			Help: "Total number of invocations processed by the host.",
		},
		[]string{"binding", "capability_id", "target", "status"},
	)

	// InvocationDuration observes invocation latency in seconds: on the
	// capability path, from the moment the worker dequeues the envelope to
	// the moment the response is ready to be written back; on the actor-call
	// path, around the guest runtime's Call.
	InvocationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "caphost_invocation_duration_seconds",
			Help:    "Invocation duration in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"binding", "capability_id"},
	)

	// MiddlewareErrorsTotal counts non-fatal middleware hook failures,
	// labelled by hook ("actor_pre"/"actor_post"/"capability_pre"/"capability_post").
	MiddlewareErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "caphost_middleware_errors_total",
			Help: "Total middleware hook failures (non-fatal; invocation proceeds with the untransformed value).",
		},
		[]string{"hook"},
	)

	// WorkerQueueDepth tracks the number of invocations currently buffered on
	// a provider's inbound channel, labelled by binding and capability_id.
	WorkerQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "caphost_worker_queue_depth",
			Help: "Number of invocations buffered on a provider's inbound channel.",
		},
		[]string{"binding", "capability_id"},
	)

	// RoutesRegistered tracks the number of live routes in the router table.
	RoutesRegistered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "caphost_routes_registered",
			Help: "Current number of registered (binding, capability_id) routes.",
		},
	)
)
