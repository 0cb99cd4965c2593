package ports

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)
	LogCritical(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)
}

type Field struct {
	Key   string
	Value any
}

// Nop discards everything.
type Nop struct{}

func (Nop) LogInfo(string, ...Field)            {}
func (Nop) LogError(string, error, ...Field)    {}
func (Nop) LogCritical(string, error, ...Field) {}
func (Nop) IncCounter(string, float64)          {}
func (Nop) ObserveLatency(string, float64)      {}
func (Nop) SetGauge(string, float64)            {}

var _ Observability = Nop{}

// Metric names shared by the queue, the pipeline and the Prometheus adapter.
const (
	MetricRecordsSpilled   = "spillq_records_spilled_total"
	MetricRecordsUnspilled = "spillq_records_unspilled_total"
	MetricSpillErrors      = "spillq_spill_errors_total"
	MetricRecordsDrained   = "spillq_records_drained_total"
	MetricQueueSize        = "spillq_queue_size"
	MetricSegmentBytes     = "spillq_segment_bytes"
	MetricSpillWrite       = "spillq_spill_write_seconds"
	MetricSinkLatency      = "spillq_sink_latency_seconds"
)
