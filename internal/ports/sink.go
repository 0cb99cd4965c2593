package ports

import "github.com/ghalamif/spillq/internal/domain"

type Sink interface {
	WriteBatch(records []*domain.Record) error
	Name() string
}
