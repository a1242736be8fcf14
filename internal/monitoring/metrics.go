package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CapturesTotal counts finished capture attempts by outcome and origin.
	CapturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capture_attempts_total",
			Help: "Total number of capture attempts.",
		},
		[]string{"outcome", "source"},
	)

	// TasksDiscovered counts crawl candidates accepted into the queue.
	TasksDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capture_tasks_discovered_total",
			Help: "Total number of tasks enqueued by link discovery.",
		},
	)

	// QueueDepth tracks the in-memory capture queue length.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "capture_queue_depth",
			Help: "Current number of tasks in the capture queue.",
		},
	)

	// RelayConnected is 1 while the relay link is established.
	RelayConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_connected",
			Help: "Whether the agent currently holds a relay connection.",
		},
	)

	// SearchesTotal counts local searches by requester.
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "searches_total",
			Help: "Total number of local search queries served.",
		},
		[]string{"origin"},
	)
)
