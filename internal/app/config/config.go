package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghalamif/spillq/internal/adapters/compress"
	"github.com/ghalamif/spillq/internal/adapters/queue"
	"github.com/ghalamif/spillq/internal/adapters/tempfile"
	"github.com/ghalamif/spillq/internal/ports"
)

type Config struct {
	Queue   QueueConfig   `yaml:"queue"`
	Drain   DrainConfig   `yaml:"drain"`
	Sink    SinkConfig    `yaml:"sink"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

type QueueConfig struct {
	MaxRamRecords   int      `yaml:"max_ram_records"`
	TempDirs        []string `yaml:"temp_dirs"`
	BufferSize      int      `yaml:"buffer_size"`
	Compression     string   `yaml:"compression"`
	MaxSegmentBytes int64    `yaml:"max_segment_bytes"`
	SegmentPrefix   string   `yaml:"segment_prefix"`
	SegmentSuffix   string   `yaml:"segment_suffix"`
	RemoveOnClose   *bool    `yaml:"remove_on_close"`
}

type DrainConfig struct {
	MaxBatchSize int           `yaml:"max_batch_size"`
	IdleSleep    time.Duration `yaml:"idle_sleep"`
	OnSinkError  string        `yaml:"on_sink_error"`
	MaxRetries   int           `yaml:"max_retries"`
}

type SinkConfig struct {
	Kind      string          `yaml:"kind"`
	Timescale TimescaleConfig `yaml:"timescale"`
}

type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Queue.MaxRamRecords == 0 {
		c.Queue.MaxRamRecords = 500_000
	}
	if len(c.Queue.TempDirs) == 0 {
		c.Queue.TempDirs = []string{os.TempDir()}
	}
	if c.Queue.BufferSize == 0 {
		c.Queue.BufferSize = queue.DefaultBufferSize
	}
	if c.Queue.Compression == "" {
		c.Queue.Compression = string(compress.None)
	}
	if c.Queue.MaxSegmentBytes == 0 {
		c.Queue.MaxSegmentBytes = tempfile.FiveGiB
	}
	if c.Queue.SegmentPrefix == "" {
		c.Queue.SegmentPrefix = queue.DefaultSegmentPrefix
	}
	if c.Queue.SegmentSuffix == "" {
		c.Queue.SegmentSuffix = queue.DefaultSegmentSuffix
	}
	if c.Queue.RemoveOnClose == nil {
		remove := true
		c.Queue.RemoveOnClose = &remove
	}
	if c.Drain.MaxBatchSize == 0 {
		c.Drain.MaxBatchSize = 5_000
	}
	if c.Drain.IdleSleep == 0 {
		c.Drain.IdleSleep = 100 * time.Millisecond
	}
	if c.Drain.OnSinkError == "" {
		c.Drain.OnSinkError = "abort"
	}
	if c.Drain.MaxRetries == 0 {
		c.Drain.MaxRetries = 3
	}
	if c.Sink.Kind == "" {
		c.Sink.Kind = "stdout"
	}
	if c.Sink.Timescale.Table == "" {
		c.Sink.Timescale.Table = "records"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

func (c *Config) Validate() error {
	if c.Queue.MaxRamRecords <= 0 {
		return fmt.Errorf("queue.max_ram_records must be > 0, got %d", c.Queue.MaxRamRecords)
	}
	if len(c.Queue.TempDirs) == 0 {
		return fmt.Errorf("queue.temp_dirs is required")
	}
	if c.Queue.BufferSize < 0 {
		return fmt.Errorf("queue.buffer_size must be >= 0, got %d", c.Queue.BufferSize)
	}
	if _, err := compress.Parse(c.Queue.Compression); err != nil {
		return fmt.Errorf("queue.compression: %w", err)
	}
	if c.Drain.MaxBatchSize <= 0 {
		return fmt.Errorf("drain.max_batch_size must be > 0, got %d", c.Drain.MaxBatchSize)
	}
	switch c.Drain.OnSinkError {
	case "abort", "retry":
	default:
		return fmt.Errorf("drain.on_sink_error must be abort or retry, got %q", c.Drain.OnSinkError)
	}
	switch c.Sink.Kind {
	case "stdout":
	case "timescale":
		if c.Sink.Timescale.ConnString == "" {
			return fmt.Errorf("sink.timescale.conn_string is required")
		}
	default:
		return fmt.Errorf("sink.kind must be stdout or timescale, got %q", c.Sink.Kind)
	}
	if c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required")
	}
	return nil
}

// Policy maps the drain section onto the pipeline policy.
func (c *Config) Policy() ports.Policy {
	return ports.Policy{
		MaxBatchSize: c.Drain.MaxBatchSize,
		IdleSleep:    c.Drain.IdleSleep,
		OnSinkError:  c.Drain.OnSinkError,
		MaxRetries:   c.Drain.MaxRetries,
	}
}

// QueueOptions maps the queue section onto DiskQueue options.
func (c *Config) QueueOptions() []queue.Option {
	kind, _ := compress.Parse(c.Queue.Compression)
	opts := []queue.Option{
		queue.WithBufferSize(c.Queue.BufferSize),
		queue.WithCompression(kind),
		queue.WithMaxSegmentBytes(c.Queue.MaxSegmentBytes),
		queue.WithSegmentNaming(c.Queue.SegmentPrefix, c.Queue.SegmentSuffix),
	}
	if c.Queue.RemoveOnClose != nil {
		opts = append(opts, queue.WithRemoveOnClose(*c.Queue.RemoveOnClose))
	}
	return opts
}
