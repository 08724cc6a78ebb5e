package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/rpattn/flowlib/internal/domain"
)

var toolsTable = Table{Kind: domain.KindTools, Name: "tools", KeyColumn: "key", Columns: []string{"name", "icon_url"}}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(toolsTable)

	inserted, err := store.Insert(ctx, domain.NewRecord(domain.KindTools, "openai", map[string]any{"name": "OpenAI"}))
	if err != nil {
		t.Fatalf("insert returned error: %v", err)
	}
	if inserted.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}

	exists, err := store.Exists(ctx, "openai")
	if err != nil || !exists {
		t.Fatalf("expected openai to exist, exists=%v err=%v", exists, err)
	}

	if _, err := store.Insert(ctx, domain.NewRecord(domain.KindTools, "openai", nil)); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	updated, err := store.Update(ctx, "openai", map[string]any{"icon_url": "https://openai.com/icon.png"})
	if err != nil {
		t.Fatalf("update returned error: %v", err)
	}
	want := map[string]any{"name": "OpenAI", "icon_url": "https://openai.com/icon.png"}
	if diff := cmp.Diff(want, updated.Fields); diff != "" {
		t.Fatalf("unexpected fields after update (-want +got):\n%s", diff)
	}

	if err := store.Delete(ctx, "openai"); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if err := store.Delete(ctx, "openai"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := store.Update(ctx, "openai", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
	if _, err := store.Get(ctx, "openai"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on get, got %v", err)
	}
}

func TestMemoryStoreListIsSortedAndPaged(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(toolsTable)
	for _, key := range []string{"slack", "airtable", "openai"} {
		if _, err := store.Insert(ctx, domain.NewRecord(domain.KindTools, key, map[string]any{"name": key})); err != nil {
			t.Fatalf("insert %s: %v", key, err)
		}
	}

	records, err := store.List(ctx, 2, 1)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	got := make([]string, len(records))
	for i, record := range records {
		got[i] = record.Identifier
	}
	if diff := cmp.Diff([]string{"openai", "slack"}, got); diff != "" {
		t.Fatalf("unexpected page (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(Table{Kind: domain.KindAgents, Name: "agents", KeyColumn: "slug", Columns: []string{"tags"}})
	if _, err := store.Insert(ctx, domain.NewRecord(domain.KindAgents, "bot", map[string]any{"tags": []string{"a"}})); err != nil {
		t.Fatalf("insert returned error: %v", err)
	}

	record, err := store.Get(ctx, "bot")
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	record.Fields["tags"].([]string)[0] = "mutated"

	again, _ := store.Get(ctx, "bot")
	if diff := cmp.Diff([]string{"a"}, again.Fields["tags"]); diff != "" {
		t.Fatalf("stored record was mutated through a returned copy:\n%s", diff)
	}
}

func TestMemoryStoreConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(toolsTable)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.Insert(ctx, domain.NewRecord(domain.KindTools, fmt.Sprintf("tool-%02d", i), nil))
		}(i)
	}
	wg.Wait()

	records, err := store.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
}

func TestMemoryStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStore(toolsTable)
	if _, err := store.Exists(ctx, "openai"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryImportLogFiltersByKindNewestFirst(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryImportLog()
	for i, kind := range []domain.Kind{domain.KindTemplates, domain.KindTools, domain.KindTemplates} {
		line := i + 1
		if err := log.Record(ctx, domain.ImportLogEntry{Kind: kind, FileName: "upload.csv", LineNumber: &line, ErrorMessage: "boom"}); err != nil {
			t.Fatalf("record returned error: %v", err)
		}
	}

	entries, err := log.List(ctx, domain.KindTemplates, 10, 0)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	lines := make([]int, len(entries))
	for i, entry := range entries {
		lines[i] = *entry.LineNumber
	}
	if diff := cmp.Diff([]int{3, 1}, lines); diff != "" {
		t.Fatalf("unexpected entries (-want +got):\n%s", diff)
	}

	paged, _ := log.List(ctx, domain.KindTemplates, 1, 1)
	if diff := cmp.Diff(entries[1:], paged, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("unexpected page (-want +got):\n%s", diff)
	}
}

func TestNormalizeScanned(t *testing.T) {
	if diff := cmp.Diff([]string{"a", "b"}, normalizeScanned([]any{"a", "b"})); diff != "" {
		t.Fatalf("unexpected list conversion:\n%s", diff)
	}
	if got := normalizeScanned(int32(7)); got != int64(7) {
		t.Fatalf("expected int64(7), got %#v", got)
	}
	if got := normalizeScanned("x"); got != "x" {
		t.Fatalf("expected passthrough, got %#v", got)
	}
}
