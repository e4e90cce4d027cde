// Package metrics exposes application metrics collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	blockStoreOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitcoinj",
		Subsystem: "block_store",
		Name:      "operations_total",
		Help:      "Count of block store operations.",
	}, []string{"operation", "engine", "network", "status"})
	blockStoreOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bitcoinj",
		Subsystem: "block_store",
		Name:      "operation_duration_seconds",
		Help:      "Duration of block store operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "engine", "network", "status"})
)

// BlockStore tracks metrics for one block store instance.
type BlockStore struct {
	engine  string
	network string
}

// NewBlockStore constructs a metrics collector for a block store backed by
// the named engine.
func NewBlockStore(engine, network string) *BlockStore {
	if engine == "" {
		engine = "unknown"
	}
	if network == "" {
		network = "unknown"
	}
	return &BlockStore{engine: engine, network: network}
}

// Observe records a single store operation outcome and duration.
func (m BlockStore) Observe(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}

	blockStoreOpsTotal.WithLabelValues(operation, m.engine, m.network, status).Inc()
	blockStoreOpDuration.WithLabelValues(operation, m.engine, m.network, status).
		Observe(time.Since(started).Seconds())
}
