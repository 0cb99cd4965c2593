package sink

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ghalamif/spillq/internal/domain"
)

func TestTimescaleSinkWriteBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records")
	ts := time.Now()

	records := []*domain.Record{
		{
			Key:       "order-1",
			Seq:       1,
			Timestamp: ts,
			Attrs:     map[string]string{"region": "eu"},
			Payload:   []byte(`{"amount":42}`),
		},
		{
			Key:       "order-2",
			Seq:       2,
			Timestamp: ts,
		},
	}

	expectedQuery := regexp.QuoteMeta("INSERT INTO records (key, seq, ts, attrs, payload) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10) ON CONFLICT (key, seq) DO NOTHING")
	mock.ExpectExec(expectedQuery).
		WithArgs("order-1", uint64(1), ts, sqlmock.AnyArg(), []byte(`{"amount":42}`),
			"order-2", uint64(2), ts, sqlmock.AnyArg(), nil).
		WillReturnResult(sqlmock.NewResult(2, 2))

	if err := sink.WriteBatch(records); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchNoRecords(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	sink := NewTimescaleSink(db, "records")
	if err := sink.WriteBatch(nil); err != nil {
		t.Fatalf("expected nil error for empty batch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTimescaleSinkWriteBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO records").WillReturnError(boom)

	sink := NewTimescaleSink(db, "records")
	if err := sink.WriteBatch([]*domain.Record{{Key: "k"}}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}
