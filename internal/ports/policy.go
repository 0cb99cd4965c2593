package ports

import "time"

// Policy controls how a spooled queue is drained.
type Policy struct {
	MaxBatchSize int
	IdleSleep    time.Duration

	OnSinkError string // "abort", "retry"
	MaxRetries  int
}
