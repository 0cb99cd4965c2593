package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ghalamif/spillq/internal/domain"
	"github.com/ghalamif/spillq/internal/ports"
)

type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

func (t *TimescaleSink) WriteBatch(records []*domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	// INSERT ... ON CONFLICT DO NOTHING keeps redelivered batches idempotent.
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (key, seq, ts, attrs, payload) VALUES ")

	args := make([]any, 0, len(records)*5)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4, len(args)+5))
		attrs, err := json.Marshal(r.Attrs)
		if err != nil {
			return fmt.Errorf("marshal attrs: %w", err)
		}
		var payload any
		if len(r.Payload) > 0 {
			payload = []byte(r.Payload)
		}

		args = append(args,
			r.Key,
			r.Seq,
			r.Timestamp,
			attrs,
			payload,
		)
	}

	b.WriteString(" ON CONFLICT (key, seq) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

var _ ports.Sink = (*TimescaleSink)(nil)
