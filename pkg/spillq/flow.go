package spillq

import (
	"context"
	"fmt"
	"io"
)

// Flow is a convenience builder that lets callers say Conf → StreamIN → StreamOUT
// without touching the underlying hexagonal wiring.
type Flow struct {
	cfg  *Config
	opts []SpoolerOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the queue side of the pipeline.
type StreamInOption func(*Flow)

// StreamOutOption configures the sink/observability side of the pipeline.
type StreamOutOption func(*Flow)

// Conf loads YAML from disk, applies FlowOption values, and returns a Flow builder.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before building a Spooler.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw SpoolerOption values to the builder.
func (f *Flow) Options(opts ...SpoolerOption) *Flow {
	if f == nil {
		return nil
	}
	f.appendOptions(opts...)
	return f
}

// StreamIN records queue-side overrides.
func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT records sink-side overrides and builds a Spooler ready to run.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Spooler, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewSpooler(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT + Spooler.Run over r.
func (f *Flow) Run(ctx context.Context, r io.Reader, opts ...StreamOutOption) (Result, error) {
	sp, err := f.StreamOUT(opts...)
	if err != nil {
		return Result{}, err
	}
	return sp.Run(ctx, r)
}

// WithFlowOptions appends SpoolerOption values during Conf.
func WithFlowOptions(opts ...SpoolerOption) FlowOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(opts...)
		}
	}
}

// StreamInMaxRamRecords overrides how many records stay in memory.
func StreamInMaxRamRecords(n int) StreamInOption {
	return func(f *Flow) {
		if f != nil && n > 0 {
			f.cfg.Queue.MaxRamRecords = n
		}
	}
}

// StreamInTempDirs overrides where spill segments may be created.
func StreamInTempDirs(dirs ...string) StreamInOption {
	return func(f *Flow) {
		if f != nil && len(dirs) > 0 {
			f.cfg.Queue.TempDirs = dirs
		}
	}
}

// StreamInAllocator lets callers bring their own segment allocator.
func StreamInAllocator(a SegmentAllocator) StreamInOption {
	return func(f *Flow) {
		if f != nil && a != nil {
			f.appendOptions(WithSegmentAllocator(a))
		}
	}
}

// StreamInObservability overrides the default zap + Prometheus stack.
func StreamInObservability(obs Observability) StreamInOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutSink injects a custom Sink implementation.
func StreamOutSink(s Sink) StreamOutOption {
	return func(f *Flow) {
		if f != nil && s != nil {
			f.appendOptions(WithSink(s))
		}
	}
}

// StreamOutObservability replaces the default observability backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if f != nil && obs != nil {
			f.appendOptions(WithObservability(obs))
		}
	}
}

// StreamOutCallback installs a sink built from a simple callback function.
func StreamOutCallback(name string, fn RecordBatchSink) StreamOutOption {
	return func(f *Flow) {
		if f != nil {
			f.appendOptions(WithSink(NewCallbackSink(name, fn)))
		}
	}
}

func (f *Flow) appendOptions(opts ...SpoolerOption) {
	for _, opt := range opts {
		if opt != nil {
			f.opts = append(f.opts, opt)
		}
	}
}
