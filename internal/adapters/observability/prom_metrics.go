package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ghalamif/spillq/internal/ports"
)

type PromObs struct {
	logger   *zap.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewPromObs registers the spillq metrics on the default registerer.
func NewPromObs(logger *zap.Logger) *PromObs {
	return NewPromObsWith(prometheus.DefaultRegisterer, logger)
}

// NewPromObsWith registers the spillq metrics on reg. Metrics already
// registered there by an earlier call are reused, so several queues in one
// process share the same series.
func NewPromObsWith(reg prometheus.Registerer, logger *zap.Logger) *PromObs {
	if logger == nil {
		logger = zap.NewNop()
	}

	spilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricRecordsSpilled,
		Help: "Records written to the spill segment.",
	})
	unspilled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricRecordsUnspilled,
		Help: "Records read back from the spill segment.",
	})
	spillErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricSpillErrors,
		Help: "I/O failures on the spill segment.",
	})
	drained := prometheus.NewCounter(prometheus.CounterOpts{
		Name: ports.MetricRecordsDrained,
		Help: "Records delivered to the sink.",
	})
	queueSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricQueueSize,
		Help: "Records currently held by the queue, in memory and on disk.",
	})
	segmentBytes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: ports.MetricSegmentBytes,
		Help: "Bytes written to the current spill segment.",
	})
	spillWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricSpillWrite,
		Help:    "Time to encode and flush one record to the spill segment.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    ports.MetricSinkLatency,
		Help:    "Time for the sink to accept one drained batch.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	spilled = register(reg, spilled)
	unspilled = register(reg, unspilled)
	spillErrors = register(reg, spillErrors)
	drained = register(reg, drained)
	queueSize = register(reg, queueSize)
	segmentBytes = register(reg, segmentBytes)
	spillWrite = register(reg, spillWrite)
	sinkLatency = register(reg, sinkLatency)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			ports.MetricRecordsSpilled:   spilled,
			ports.MetricRecordsUnspilled: unspilled,
			ports.MetricSpillErrors:      spillErrors,
			ports.MetricRecordsDrained:   drained,
		},
		gauges: map[string]prometheus.Gauge{
			ports.MetricQueueSize:    queueSize,
			ports.MetricSegmentBytes: segmentBytes,
		},
		histos: map[string]prometheus.Observer{
			ports.MetricSpillWrite:  spillWrite,
			ports.MetricSinkLatency: sinkLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, zapFields(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(zapFields(fields), zap.Error(err))...)
	}
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err != nil {
		p.logger.Error(msg, append(zapFields(fields), zap.Error(err), zap.Bool("critical", true))...)
	}
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor. Any other registration error panics, like MustRegister.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func zapFields(fields []ports.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+2)
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
