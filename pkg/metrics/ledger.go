package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Ledger operations by name, backend mode and outcome
	LedgerOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockrewards_ledger_operations_total",
		Help: "Total number of ledger operations",
	}, []string{"operation", "mode", "result"})

	// Latency of ledger operations, chain confirmations included
	LedgerOperationLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "blockrewards_ledger_operation_latency_seconds",
		Help:    "Latency of ledger operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "mode"})

	// Points moved through the ledger, by category
	PointsMoved = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockrewards_points_moved_total",
		Help: "Absolute points credited or debited",
	}, []string{"category"})

	// Mirror uploads and fetches that failed
	MirrorFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "blockrewards_mirror_failures_total",
		Help: "Failed external mirror uploads and fetches",
	})

	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "blockrewards_auth_attempts_total",
		Help: "Signup and login attempts",
	}, []string{"operation", "result"})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			LedgerOperations,
			LedgerOperationLatency,
			PointsMoved,
			MirrorFailures,
			AuthAttempts,
		)
	})
}
