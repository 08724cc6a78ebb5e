package repository

import (
	"context"
	"errors"

	"github.com/rpattn/flowlib/internal/domain"
)

var (
	// ErrNotFound is returned when no record matches an identifier.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when an insert collides with a stored identifier.
	ErrAlreadyExists = errors.New("already exists")
)

// Table describes the storage layout of one catalog kind.
type Table struct {
	Kind      domain.Kind
	Name      string
	KeyColumn string
	// Columns lists the content columns, excluding id, key and timestamps.
	Columns []string
}

// RecordStore persists the records of a single catalog kind.
type RecordStore interface {
	Exists(ctx context.Context, identifier string) (bool, error)
	Get(ctx context.Context, identifier string) (domain.Record, error)
	Insert(ctx context.Context, record domain.Record) (domain.Record, error)
	Update(ctx context.Context, identifier string, fields map[string]any) (domain.Record, error)
	Delete(ctx context.Context, identifier string) error
	List(ctx context.Context, limit int, offset int) ([]domain.Record, error)
}

// StoreFactory builds the store backing a table.
type StoreFactory func(table Table) RecordStore

// ImportLogRepository stores commit errors for later inspection.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, kind domain.Kind, limit int, offset int) ([]domain.ImportLogEntry, error)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
