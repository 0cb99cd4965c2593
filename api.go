package spillq

import (
	base "github.com/ghalamif/spillq/pkg/spillq"
)

// Re-exported errors for convenience.
var (
	ErrConfig            = base.ErrConfig
	ErrInvalidState      = base.ErrInvalidState
	ErrEmptyQueue        = base.ErrEmptyQueue
	ErrBroken            = base.ErrBroken
	ErrClosed            = base.ErrClosed
	ErrIO                = base.ErrIO
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

const (
	CompressionNone   = base.CompressionNone
	CompressionSnappy = base.CompressionSnappy
	CompressionS2     = base.CompressionS2
)

// Queue is the disk-backed FIFO; see pkg/spillq.
type Queue[T any] = base.Queue[T]

// Codec serializes queue records.
type Codec[T any] = base.Codec[T]

// Type aliases so consumers can import github.com/ghalamif/spillq directly.
type (
	Config           = base.Config
	QueueConfig      = base.QueueConfig
	DrainConfig      = base.DrainConfig
	SinkConfig       = base.SinkConfig
	TimescaleConfig  = base.TimescaleConfig
	MetricsConfig    = base.MetricsConfig
	LogConfig        = base.LogConfig
	Policy           = base.Policy
	Option           = base.Option
	Stats            = base.Stats
	IOError          = base.IOError
	Compression      = base.Compression
	SegmentAllocator = base.SegmentAllocator
	Record           = base.Record
	RecordBatchSink  = base.RecordBatchSink
	Sink             = base.Sink
	Observability    = base.Observability
	Field            = base.Field
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Spooler          = base.Spooler
	SpoolerOption    = base.SpoolerOption
	Result           = base.Result
)

// Queue construction.
func New[T any](c Codec[T], maxRamRecords int, tempDirs []string, opts ...Option) (*Queue[T], error) {
	return base.New(c, maxRamRecords, tempDirs, opts...)
}

func NewJSONCodec[T any]() Codec[T] { return base.NewJSONCodec[T]() }

func BytesCodec() Codec[[]byte] { return base.BytesCodec() }

func StringCodec() Codec[string] { return base.StringCodec() }

func NewTempAllocator() SegmentAllocator { return base.NewTempAllocator() }

func WithBufferSize(n int) Option { return base.WithBufferSize(n) }

func WithCompression(k Compression) Option { return base.WithCompression(k) }

func WithSegmentNaming(prefix, suffix string) Option {
	return base.WithSegmentNaming(prefix, suffix)
}

func WithMaxSegmentBytes(n int64) Option { return base.WithMaxSegmentBytes(n) }

func WithAllocator(a SegmentAllocator) Option { return base.WithAllocator(a) }

func WithQueueObservability(obs Observability) Option {
	return base.WithQueueObservability(obs)
}

func WithRemoveOnClose(remove bool) Option { return base.WithRemoveOnClose(remove) }

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...SpoolerOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInMaxRamRecords(n int) StreamInOption {
	return base.StreamInMaxRamRecords(n)
}

func StreamInTempDirs(dirs ...string) StreamInOption {
	return base.StreamInTempDirs(dirs...)
}

func StreamInAllocator(a SegmentAllocator) StreamInOption {
	return base.StreamInAllocator(a)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

func StreamOutCallback(name string, fn RecordBatchSink) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

// Spooler and options.
func NewSpooler(cfg *Config, opts ...SpoolerOption) (*Spooler, error) {
	return base.NewSpooler(cfg, opts...)
}

func WithSink(s Sink) SpoolerOption {
	return base.WithSink(s)
}

func WithObservability(obs Observability) SpoolerOption {
	return base.WithObservability(obs)
}

func WithSegmentAllocator(a SegmentAllocator) SpoolerOption {
	return base.WithSegmentAllocator(a)
}

func WithoutMetricsServer() SpoolerOption {
	return base.WithoutMetricsServer()
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Record, func()) {
	return base.NewChannelSink(name, buffer)
}
