package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/petrel-data/gridbase/internal/sqlite"
	"github.com/petrel-data/gridbase/pkg/types"
)

const testOwner = "tester"

func newTestStore(t *testing.T) *sqlite.Backend {
	t.Helper()
	b := sqlite.NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

func newIngestTable(t *testing.T, b *sqlite.Backend, name string) *types.Table {
	t.Helper()
	tbl, err := b.CreateTable(testOwner, name)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	for _, spec := range []struct{ name, typ string }{
		{"Name", types.ColumnTypeText},
		{"Email", types.ColumnTypeText},
		{"Age", types.ColumnTypeNumber},
	} {
		if _, err := b.AddColumn(testOwner, tbl.TableID, spec.name, spec.typ); err != nil {
			t.Fatalf("AddColumn(%s) failed: %v", spec.name, err)
		}
	}
	return tbl
}

func TestPipeline_Ingest(t *testing.T) {
	b := newTestStore(t)
	tbl := newIngestTable(t, b, "people")

	cfg := types.IngestConfig{BatchSize: 100, MaxWorkers: 2}
	p := NewPipeline(b, testOwner, cfg, nil)

	res, err := p.Ingest(context.Background(), tbl.TableID, 250)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.RowsAdded != 250 {
		t.Errorf("RowsAdded = %d, want 250", res.RowsAdded)
	}

	n, err := b.CountRows(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 250 {
		t.Errorf("stored rows = %d, want 250", n)
	}

	// Spot-check one page: every row carries a full cache and search text.
	cols, _ := b.ListColumns(testOwner, tbl.TableID)
	page, err := b.FetchRowPage(testOwner, tbl.TableID, "", 10)
	if err != nil {
		t.Fatalf("FetchRowPage failed: %v", err)
	}
	for _, r := range page.Rows {
		if len(r.Cache) != len(cols) {
			t.Errorf("row %s cache has %d entries, want %d", r.RowID, len(r.Cache), len(cols))
		}
		if r.Search == "" {
			t.Errorf("row %s has empty search text", r.RowID)
		}
	}
}

func TestPipeline_ConcurrentBatchesAllCommit(t *testing.T) {
	b := newTestStore(t)
	tbl := newIngestTable(t, b, "contended")

	// More batches than workers, workers above one: sibling batches contend
	// for SQLite's single write lock and every one must land.
	cfg := types.IngestConfig{BatchSize: 10, MaxWorkers: 4}
	p := NewPipeline(b, testOwner, cfg, nil)

	res, err := p.Ingest(context.Background(), tbl.TableID, 120)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if res.RowsAdded != 120 {
		t.Errorf("RowsAdded = %d, want 120", res.RowsAdded)
	}
	n, err := b.CountRows(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 120 {
		t.Errorf("stored rows = %d, want 120", n)
	}
}

func TestPipeline_IngestZeroRows(t *testing.T) {
	b := newTestStore(t)
	tbl := newIngestTable(t, b, "nothing")

	p := NewPipeline(b, testOwner, types.IngestConfig{}, nil)
	res, err := p.Ingest(context.Background(), tbl.TableID, 0)
	if err != nil {
		t.Fatalf("Ingest(0) failed: %v", err)
	}
	if res.RowsAdded != 0 {
		t.Errorf("RowsAdded = %d, want 0", res.RowsAdded)
	}
}

func TestPipeline_IngestCountOutOfRange(t *testing.T) {
	b := newTestStore(t)
	tbl := newIngestTable(t, b, "bounds")

	p := NewPipeline(b, testOwner, types.IngestConfig{}, nil)
	for _, count := range []int{-1, types.MaxIngestCount + 1} {
		_, err := p.Ingest(context.Background(), tbl.TableID, count)
		if !errors.Is(err, types.ErrCountOutOfRange) {
			t.Errorf("Ingest(%d): expected ErrCountOutOfRange, got %v", count, err)
		}
	}
}

func TestPipeline_IngestUnknownTable(t *testing.T) {
	b := newTestStore(t)
	newIngestTable(t, b, "exists")

	p := NewPipeline(b, testOwner, types.IngestConfig{}, nil)
	_, err := p.Ingest(context.Background(), "no-such-table", 10)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPipeline_DeterministicWithFixedSeed(t *testing.T) {
	b := newTestStore(t)
	first := newIngestTable(t, b, "first")
	second := newIngestTable(t, b, "second")

	cfg := types.IngestConfig{BatchSize: 20, MaxWorkers: 2}
	for _, tbl := range []*types.Table{first, second} {
		p := NewPipeline(b, testOwner, cfg, nil)
		p.seed = 12345
		if _, err := p.Ingest(context.Background(), tbl.TableID, 50); err != nil {
			t.Fatalf("Ingest failed: %v", err)
		}
	}

	collect := func(tableID string) []string {
		var out []string
		cursor := ""
		for {
			page, err := b.FetchRowPage(testOwner, tableID, cursor, 25)
			if err != nil {
				t.Fatalf("FetchRowPage failed: %v", err)
			}
			for _, r := range page.Rows {
				out = append(out, r.Search)
			}
			if !page.HasMore {
				return out
			}
			cursor = page.NextCursor
		}
	}

	a, c := collect(first.TableID), collect(second.TableID)
	sort.Strings(a)
	sort.Strings(c)
	if len(a) != len(c) {
		t.Fatalf("row counts differ: %d vs %d", len(a), len(c))
	}
	for i := range a {
		if a[i] != c[i] {
			t.Fatalf("same seed produced different data at %d: %q vs %q", i, a[i], c[i])
		}
	}
}

// flakyStore wraps a fake store to fail a fixed number of batch opens.
type flakyStore struct {
	cols     []*types.Column
	failures atomic.Int32
}

func (f *flakyStore) ListColumns(owner, tableID string) ([]*types.Column, error) {
	return f.cols, nil
}

func (f *flakyStore) BeginBatchCopy(ctx context.Context, owner, tableID string) (types.BatchCopy, error) {
	if f.failures.Add(-1) >= 0 {
		return nil, fmt.Errorf("simulated batch copy failure")
	}
	return &nullStream{}, nil
}

// nullStream discards every line.
type nullStream struct {
	mu sync.Mutex
	n  int
}

func (s *nullStream) WriteRow(string) error  { return s.count() }
func (s *nullStream) WriteCell(string) error { return s.count() }

func (s *nullStream) count() error {
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}

func (s *nullStream) Commit() error   { return nil }
func (s *nullStream) Rollback() error { return nil }

func TestPipeline_BatchFailureIsIsolated(t *testing.T) {
	store := &flakyStore{cols: []*types.Column{textCol("Name")}}
	store.failures.Store(1)

	p := NewPipeline(store, testOwner, types.IngestConfig{BatchSize: 10, MaxWorkers: 1}, nil)
	res, err := p.Ingest(context.Background(), "table", 30)
	if err == nil {
		t.Fatal("expected an aggregated batch error")
	}
	if res.RowsAdded != 20 {
		t.Errorf("RowsAdded = %d, want 20 (one failed batch of 10)", res.RowsAdded)
	}
}

func TestPipeline_AllBatchesFail(t *testing.T) {
	store := &flakyStore{cols: []*types.Column{textCol("Name")}}
	store.failures.Store(100)

	p := NewPipeline(store, testOwner, types.IngestConfig{BatchSize: 10, MaxWorkers: 2}, nil)
	res, err := p.Ingest(context.Background(), "table", 30)
	if err == nil {
		t.Fatal("expected an error when every batch fails")
	}
	if res.RowsAdded != 0 {
		t.Errorf("RowsAdded = %d, want 0", res.RowsAdded)
	}
}
