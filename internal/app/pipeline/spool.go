package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

// Result counts records moved by Spool.
type Result struct {
	Filled  int
	Drained int
}

// Spool fills q from in until in is closed, then drains q into sink. The two
// phases never overlap: a disk-backed queue stops accepting records once it
// starts reading back from disk.
func Spool(ctx context.Context, in <-chan *domain.Record, q ports.RecordQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) (Result, error) {
	var res Result

	filled, err := Fill(ctx, in, q, obs)
	res.Filled = filled
	if err != nil {
		return res, err
	}
	obs.LogInfo("spool_filled", ports.Field{Key: "records", Value: filled})

	drained, err := Drain(ctx, q, sink, pol, obs)
	res.Drained = drained
	if err != nil {
		return res, err
	}
	obs.LogInfo("spool_drained",
		ports.Field{Key: "records", Value: drained},
		ports.Field{Key: "sink", Value: sink.Name()})
	return res, nil
}

// Fill adds every record from in to q.
func Fill(ctx context.Context, in <-chan *domain.Record, q ports.RecordQueue, obs ports.Observability) (int, error) {
	var n int
	for {
		select {
		case <-ctx.Done():
			return n, ctx.Err()
		case r, ok := <-in:
			if !ok {
				return n, nil
			}
			if err := q.Add(r); err != nil {
				obs.LogCritical("queue_add_failed", err, ports.Field{Key: "key", Value: r.Key})
				return n, fmt.Errorf("add record %s/%d: %w", r.Key, r.Seq, err)
			}
			n++
			obs.SetGauge(ports.MetricQueueSize, float64(q.Size()))
		}
	}
}

// Drain polls batches of up to pol.MaxBatchSize records from q in FIFO order
// and writes them to sink until q is empty.
func Drain(ctx context.Context, q ports.RecordQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) (int, error) {
	limit := pol.MaxBatchSize
	if limit <= 0 {
		limit = 1
	}

	var drained int
	batch := make([]*domain.Record, 0, limit)
	for {
		if err := ctx.Err(); err != nil {
			return drained, err
		}

		batch = batch[:0]
		for len(batch) < limit {
			r, ok, err := q.Poll()
			if err != nil {
				obs.LogCritical("queue_poll_failed", err)
				return drained, fmt.Errorf("poll: %w", err)
			}
			if !ok {
				break
			}
			batch = append(batch, r)
		}
		if len(batch) == 0 {
			return drained, nil
		}

		if err := writeWithPolicy(ctx, sink, batch, pol, obs); err != nil {
			return drained, err
		}
		drained += len(batch)
		obs.IncCounter(ports.MetricRecordsDrained, float64(len(batch)))
		obs.SetGauge(ports.MetricQueueSize, float64(q.Size()))
	}
}

func writeWithPolicy(ctx context.Context, sink ports.Sink, batch []*domain.Record, pol ports.Policy, obs ports.Observability) error {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := sink.WriteBatch(batch)
		if err == nil {
			obs.ObserveLatency(ports.MetricSinkLatency, time.Since(start).Seconds())
			return nil
		}
		obs.LogError("sink_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "attempt", Value: attempt + 1})

		switch pol.OnSinkError {
		case "retry":
			if attempt >= pol.MaxRetries {
				return fmt.Errorf("sink %s: giving up after %d attempts: %w", sink.Name(), attempt+1, err)
			}
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(sleep):
			}
		default:
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}
}

// ReadJSONLines decodes one record per line from r into out. Records without
// a sequence number get their 1-based line number. out is left open.
func ReadJSONLines(ctx context.Context, r io.Reader, out chan<- *domain.Record) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	var line uint64
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}

		var rec domain.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Seq == 0 {
			rec.Seq = line
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- &rec:
		}
	}
	return sc.Err()
}
