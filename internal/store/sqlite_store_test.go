package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mcptoolbox/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "journal.sqlite"))
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Init(context.Background()); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return st
}

func TestSQLiteStore_CallHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	if err := verifyIndexes(ctx, st); err != nil {
		t.Fatalf("index verification failed: %v", err)
	}

	base := time.UnixMilli(1_700_000_000_000)
	calls := []model.CallRecord{
		{SessionID: "s1", Tool: "read_file_content", Success: true, DurationMS: 3, CalledAt: base},
		{SessionID: "s1", Tool: "list_directory", Success: false, ErrorKind: model.KindNotFound, Error: "Directory not found: x", DurationMS: 1, CalledAt: base.Add(time.Second)},
		{Tool: "figma_get_file", Success: true, DurationMS: 120, CalledAt: base.Add(2 * time.Second)},
	}
	for _, rec := range calls {
		if err := st.RecordCall(ctx, rec); err != nil {
			t.Fatalf("RecordCall failed: %v", err)
		}
	}

	got, err := st.RecentCalls(ctx, 2)
	if err != nil {
		t.Fatalf("RecentCalls failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(got))
	}
	if got[0].Tool != "figma_get_file" || got[1].Tool != "list_directory" {
		t.Fatalf("unexpected order: %#v", got)
	}

	want := calls[1]
	want.ID = got[1].ID
	if diff := cmp.Diff(want, got[1]); diff != "" {
		t.Fatalf("call record mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteStore_RecordCallRequiresTool(t *testing.T) {
	st := newTestStore(t)
	if err := st.RecordCall(context.Background(), model.CallRecord{Tool: "  "}); err == nil {
		t.Fatal("expected error for empty tool name")
	}
}

func TestSQLiteStore_CacheEntriesUpsertByPath(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	first := model.CacheEntry{Path: "/tmp/cache/file_a_1.json", Kind: "file", ResourceKey: "a", SizeBytes: 10, CreatedAt: time.UnixMilli(1000)}
	second := model.CacheEntry{Path: "/tmp/cache/file_nodes_b_2.json", Kind: "file_nodes", ResourceKey: "b", SizeBytes: 20, CreatedAt: time.UnixMilli(2000)}
	for _, entry := range []model.CacheEntry{first, second} {
		if err := st.RecordCacheEntry(ctx, entry); err != nil {
			t.Fatalf("RecordCacheEntry failed: %v", err)
		}
	}

	first.SizeBytes = 99
	first.CreatedAt = time.UnixMilli(3000)
	if err := st.RecordCacheEntry(ctx, first); err != nil {
		t.Fatalf("RecordCacheEntry update failed: %v", err)
	}

	got, err := st.CacheEntries(ctx, 0)
	if err != nil {
		t.Fatalf("CacheEntries failed: %v", err)
	}
	if diff := cmp.Diff([]model.CacheEntry{first, second}, got); diff != "" {
		t.Fatalf("cache entries mismatch (-want +got):\n%s", diff)
	}

	if err := st.RecordCacheEntry(ctx, model.CacheEntry{}); err == nil {
		t.Fatal("expected error for empty cache entry path")
	}
}

func TestSQLiteStore_ReopenKeepsRows(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.sqlite")

	st := NewSQLiteStore(path)
	if err := st.RecordCall(ctx, model.CallRecord{Tool: "ping_tool", Success: true}); err != nil {
		t.Fatalf("RecordCall failed: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := NewSQLiteStore(path)
	defer func() { _ = reopened.Close() }()
	got, err := reopened.RecentCalls(ctx, 10)
	if err != nil {
		t.Fatalf("RecentCalls failed: %v", err)
	}
	if len(got) != 1 || got[0].Tool != "ping_tool" {
		t.Fatalf("unexpected rows after reopen: %#v", got)
	}
}

func TestSQLiteStore_ConcurrentRecordAndClose(t *testing.T) {
	ctx := context.Background()
	st := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.sqlite"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// errors are expected once Close wins; only panics matter
			_ = st.RecordCall(ctx, model.CallRecord{Tool: fmt.Sprintf("tool_%d", i)})
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = st.Close()
	}()
	wg.Wait()

	if err := st.Close(); err != nil {
		t.Fatalf("unexpected error on final Close: %v", err)
	}
}

func verifyIndexes(ctx context.Context, st *SQLiteStore) error {
	db, err := st.ensureDB(ctx)
	if err != nil {
		return err
	}
	present := make(map[string]bool)
	for _, table := range []string{"tool_calls", "cache_entries"} {
		rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list('%s')", table))
		if err != nil {
			return err
		}
		for rows.Next() {
			var seq int
			var name string
			var unique int
			var origin string
			var partial int
			if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
				_ = rows.Close()
				return err
			}
			present[name] = true
		}
		if err := rows.Close(); err != nil {
			return err
		}
	}
	for _, want := range []string{"idx_tool_calls_called_at", "idx_cache_entries_created_at"} {
		if !present[want] {
			return fmt.Errorf("expected index %s to exist", want)
		}
	}
	return nil
}
