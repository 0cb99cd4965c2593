package spillq

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/spillq/internal/adapters/codec"
	"github.com/ghalamif/spillq/internal/adapters/observability"
	"github.com/ghalamif/spillq/internal/adapters/queue"
	"github.com/ghalamif/spillq/internal/adapters/sink"
	"github.com/ghalamif/spillq/internal/app/pipeline"
	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

// Result counts records moved by one spool run.
type Result = pipeline.Result

// SpoolerOption customizes the dependencies used by Spooler.
type SpoolerOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sink          Sink
	observability Observability
	registerer    prometheus.Registerer
	allocator     SegmentAllocator
	logger        *zap.Logger
	noMetrics     bool
}

// WithSink injects a custom sink so records can be sent to any database or API.
func WithSink(s Sink) SpoolerOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithObservability plugs in a custom observability backend instead of zap + Prometheus.
func WithObservability(obs Observability) SpoolerOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithRegisterer registers the default Prometheus metrics on reg instead of
// the global registerer.
func WithRegisterer(reg prometheus.Registerer) SpoolerOption {
	return func(o *runtimeOverrides) {
		o.registerer = reg
	}
}

// WithLogger replaces the logger built from the log config section.
func WithLogger(l *zap.Logger) SpoolerOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithSegmentAllocator overrides where spill segments are created.
func WithSegmentAllocator(a SegmentAllocator) SpoolerOption {
	return func(o *runtimeOverrides) {
		o.allocator = a
	}
}

// WithoutMetricsServer keeps Run from serving /metrics.
func WithoutMetricsServer() SpoolerOption {
	return func(o *runtimeOverrides) {
		o.noMetrics = true
	}
}

// Spooler reads records, buffers them in a disk-backed queue and drains them
// in arrival order to a sink.
type Spooler struct {
	cfg        *Config
	policy     ports.Policy
	obs        ports.Observability
	gatherer   prometheus.Gatherer
	sink       ports.Sink
	allocator  ports.SegmentAllocator
	logger     *zap.Logger
	db         *sql.DB
	metricsSrv *http.Server
	noMetrics  bool
}

// NewSpooler bootstraps the default adapters (stdout or Timescale sink, zap
// logging, Prometheus metrics). SpoolerOption values override any of them.
// Spoolers sharing a registerer share its spillq_* metrics.
func NewSpooler(cfg *Config, opts ...SpoolerOption) (*Spooler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		var err error
		logger, err = observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return nil, err
		}
	}

	reg := overrides.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	// /metrics serves the registry the metrics live on when it can be read.
	var gatherer prometheus.Gatherer
	if g, ok := reg.(prometheus.Gatherer); ok && reg != prometheus.DefaultRegisterer {
		gatherer = g
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObsWith(reg, logger)
	}

	var (
		db  *sql.DB
		snk ports.Sink
	)
	switch {
	case overrides.sink != nil:
		snk = overrides.sink
	case cfg.Sink.Kind == "timescale":
		var err error
		db, err = sql.Open("postgres", cfg.Sink.Timescale.ConnString)
		if err != nil {
			return nil, err
		}
		snk = sink.NewTimescaleSink(db, cfg.Sink.Timescale.Table)
	default:
		snk = sink.NewWriterSink("stdout", os.Stdout)
	}

	return &Spooler{
		cfg:       cfg,
		policy:    cfg.Policy(),
		obs:       obs,
		gatherer:  gatherer,
		sink:      snk,
		allocator: overrides.allocator,
		logger:    logger,
		db:        db,
		noMetrics: overrides.noMetrics,
	}, nil
}

// Spool reads JSON-lines records from r into a fresh queue, then drains the
// queue into the sink. The queue's segment is closed before Spool returns.
func (s *Spooler) Spool(ctx context.Context, r io.Reader) (res Result, err error) {
	if s == nil {
		return res, fmt.Errorf("spooler is nil")
	}

	opts := append(s.cfg.QueueOptions(), queue.WithObservability(s.obs))
	if s.allocator != nil {
		opts = append(opts, queue.WithAllocator(s.allocator))
	}
	q, err := queue.New[*domain.Record](codec.NewJSONCodec[*domain.Record](), s.cfg.Queue.MaxRamRecords, s.cfg.Queue.TempDirs, opts...)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := q.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	in := make(chan *domain.Record, 1024)
	go func() {
		if rerr := pipeline.ReadJSONLines(ctx, r, in); rerr != nil {
			cancel(fmt.Errorf("read input: %w", rerr))
		}
		close(in)
	}()

	res, err = pipeline.Spool(ctx, in, q, s.sink, s.policy, s.obs)
	if err != nil && errors.Is(err, context.Canceled) {
		if cause := context.Cause(ctx); cause != nil {
			err = cause
		}
	}
	return res, err
}

// Run serves metrics while spooling r, then shuts everything down.
func (s *Spooler) Run(ctx context.Context, r io.Reader) (Result, error) {
	if s == nil {
		return Result{}, fmt.Errorf("spooler is nil")
	}
	if !s.noMetrics {
		s.startMetrics()
	}

	res, err := s.Spool(ctx, r)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return res, errors.Join(err, s.Shutdown(shutdownCtx))
}

// Shutdown stops the metrics server and closes the DB connection.
func (s *Spooler) Shutdown(ctx context.Context) error {
	var errs []error

	if s.metricsSrv != nil {
		if err := s.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		s.metricsSrv = nil
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, err)
		}
		s.db = nil
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

func (s *Spooler) startMetrics() {
	s.metricsSrv = &http.Server{
		Addr:    s.cfg.Metrics.Addr,
		Handler: s.metricsHandler(),
	}

	srv := s.metricsSrv
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server exited", zap.Error(err))
		}
	}()
}

func (s *Spooler) metricsHandler() http.Handler {
	metrics := promhttp.Handler()
	if s.gatherer != nil {
		metrics = promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
