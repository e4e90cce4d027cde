package builder

import "time"

const (
	defaultWindowSize  = 2048
	defaultWorkerCount = 8
	defaultMaxRetries  = 5

	retryBackoffInitial = 500 * time.Millisecond
	retryBackoffMax     = 10 * time.Second

	// minCheckpointAge is how far behind the build time a header must be
	// before it can become a checkpoint.
	minCheckpointAge = 24 * time.Hour
)
