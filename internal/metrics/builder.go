package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	builderFetchWindowTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitcoinj",
		Subsystem: "checkpoint_builder",
		Name:      "fetch_window_total",
		Help:      "Count of header window fetches.",
	}, []string{"network", "status"})

	builderFetchWindowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bitcoinj",
		Subsystem: "checkpoint_builder",
		Name:      "fetch_window_duration_seconds",
		Help:      "Duration of fetching a window of headers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"network", "status"})

	builderFetchWindowSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "bitcoinj",
		Subsystem: "checkpoint_builder",
		Name:      "fetch_window_size",
		Help:      "Number of headers fetched per window.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1..2048
	}, []string{"network"})

	builderHeight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "bitcoinj",
		Subsystem: "checkpoint_builder",
		Name:      "height",
		Help:      "Highest height folded into the chain walk.",
	}, []string{"network"})

	builderCheckpointsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bitcoinj",
		Subsystem: "checkpoint_builder",
		Name:      "checkpoints_total",
		Help:      "Count of checkpoints collected.",
	}, []string{"network"})
)

// Builder tracks metrics for the checkpoint building walk.
type Builder struct {
	network string
}

// NewBuilder constructs a Builder with sane defaults.
func NewBuilder(network string) *Builder {
	if network == "" {
		network = "unknown"
	}
	return &Builder{network: network}
}

// ObserveFetchWindow records one header window fetch outcome and duration.
func (m Builder) ObserveFetchWindow(err error, headers int, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	builderFetchWindowTotal.WithLabelValues(m.network, status).Inc()
	builderFetchWindowDuration.WithLabelValues(m.network, status).
		Observe(time.Since(started).Seconds())
	if err == nil {
		builderFetchWindowSize.WithLabelValues(m.network).Observe(float64(headers))
	}
}

// ObserveProgress records the height the chain walk has reached.
func (m Builder) ObserveProgress(height uint32) {
	builderHeight.WithLabelValues(m.network).Set(float64(height))
}

// ObserveCheckpoint records one collected checkpoint.
func (m Builder) ObserveCheckpoint() {
	builderCheckpointsTotal.WithLabelValues(m.network).Inc()
}
