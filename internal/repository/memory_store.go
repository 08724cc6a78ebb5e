package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/flowlib/internal/domain"
)

// MemoryStore is a RecordStore kept in process memory. It backs the
// "memory" database driver and the package tests.
type MemoryStore struct {
	table Table

	mu      sync.RWMutex
	records map[string]domain.Record
}

// NewMemoryStore creates an empty store for table.
func NewMemoryStore(table Table) *MemoryStore {
	return &MemoryStore{table: table, records: make(map[string]domain.Record)}
}

// MemoryStores returns a StoreFactory producing independent memory stores.
func MemoryStores() StoreFactory {
	return func(table Table) RecordStore {
		return NewMemoryStore(table)
	}
}

func (s *MemoryStore) Exists(ctx context.Context, identifier string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[identifier]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, identifier string) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[identifier]
	if !ok {
		return domain.Record{}, fmt.Errorf("%s %q: %w", s.table.Kind, identifier, ErrNotFound)
	}
	return record.Merge(nil), nil
}

func (s *MemoryStore) Insert(ctx context.Context, record domain.Record) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.Identifier]; ok {
		return domain.Record{}, fmt.Errorf("%s %q: %w", s.table.Kind, record.Identifier, ErrAlreadyExists)
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	record.Kind = s.table.Kind
	record.CreatedAt = now
	record.UpdatedAt = now
	record = record.Merge(nil)
	s.records[record.Identifier] = record
	return record, nil
}

func (s *MemoryStore) Update(ctx context.Context, identifier string, fields map[string]any) (domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[identifier]
	if !ok {
		return domain.Record{}, fmt.Errorf("%s %q: %w", s.table.Kind, identifier, ErrNotFound)
	}
	updated := existing.Merge(fields)
	s.records[identifier] = updated
	return updated.Merge(nil), nil
}

func (s *MemoryStore) Delete(ctx context.Context, identifier string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[identifier]; !ok {
		return fmt.Errorf("%s %q: %w", s.table.Kind, identifier, ErrNotFound)
	}
	delete(s.records, identifier)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, limit int, offset int) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = normalizePage(limit, offset)

	s.mu.RLock()
	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	records := []domain.Record{}
	for i := offset; i < len(keys) && len(records) < limit; i++ {
		records = append(records, s.records[keys[i]].Merge(nil))
	}
	s.mu.RUnlock()

	return records, nil
}

// MemoryImportLog keeps import log entries in memory, newest first.
type MemoryImportLog struct {
	mu      sync.Mutex
	entries []domain.ImportLogEntry
}

// NewMemoryImportLog creates an empty in-memory import log.
func NewMemoryImportLog() *MemoryImportLog {
	return &MemoryImportLog{}
}

func (l *MemoryImportLog) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]domain.ImportLogEntry{entry}, l.entries...)
	return nil
}

func (l *MemoryImportLog) List(ctx context.Context, kind domain.Kind, limit int, offset int) ([]domain.ImportLogEntry, error) {
	limit, offset = normalizePage(limit, offset)
	l.mu.Lock()
	defer l.mu.Unlock()

	matched := []domain.ImportLogEntry{}
	skipped := 0
	for _, entry := range l.entries {
		if entry.Kind != kind {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		if len(matched) == limit {
			break
		}
		matched = append(matched, entry)
	}
	return matched, nil
}
