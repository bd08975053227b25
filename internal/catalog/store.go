package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist in the store.
var ErrNotFound = errors.New("framework not found")

// Store is the read/maintenance surface of the catalog. The discovery engine
// only ever calls List; the import/clean/inspect commands use the rest.
type Store interface {
	// List returns all records ordered by id. Repeated calls without
	// underlying changes return identical content.
	List(ctx context.Context) ([]Record, error)
	Get(ctx context.Context, id int64) (Record, error)
	Insert(ctx context.Context, r Record) (int64, error)
	UpdateName(ctx context.Context, id int64, name string) error
	Close() error
}
