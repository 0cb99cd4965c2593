package ports

import "github.com/ghalamif/spillq/internal/domain"

// RecordQueue is the FIFO the spool pipeline fills and drains.
type RecordQueue interface {
	Add(r *domain.Record) error
	Poll() (*domain.Record, bool, error)
	Size() int
}
