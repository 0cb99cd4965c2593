package spillq

import (
	"github.com/ghalamif/spillq/internal/app/config"
	"github.com/ghalamif/spillq/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// QueueConfig sizes the in-memory buffer and places the spill segment.
	QueueConfig = config.QueueConfig
	// DrainConfig controls batching and sink error handling.
	DrainConfig = config.DrainConfig
	// SinkConfig picks the drain destination.
	SinkConfig = config.SinkConfig
	// TimescaleConfig configures the Postgres/Timescale sink.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// LogConfig configures the zap logger.
	LogConfig = config.LogConfig
	// Policy is the drain policy derived from DrainConfig.
	Policy = ports.Policy
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
