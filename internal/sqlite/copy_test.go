// Tests for the copy line codec and the bulk copy streams.
package sqlite

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/petrel-data/gridbase/pkg/types"
)

func TestEncodeCopyLine(t *testing.T) {
	tests := []struct {
		name   string
		fields []any
		want   string
	}{
		{"plain", []any{"a", "b"}, "a,b"},
		{"null", []any{"a", nil, "c"}, `a,\N,c`},
		{"comma quoted", []any{"a,b"}, `"a,b"`},
		{"quote doubled", []any{`say "hi"`}, `"say ""hi"""`},
		{"newline quoted", []any{"a\nb"}, "\"a\nb\""},
		{"null collision quoted", []any{`\N`}, `"\N"`},
		{"int64", []any{int64(42)}, "42"},
		{"float", []any{float64(7)}, "7"},
		{"empty string", []any{"", "x"}, ",x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodeCopyLine(tt.fields...); got != tt.want {
				t.Errorf("EncodeCopyLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCopyLine_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		fields []any
	}{
		{"plain", []any{"alpha", "beta", "gamma"}},
		{"null middle", []any{"a", nil, "c"}},
		{"embedded separators", []any{`x,y`, `say "hi"`, "line\nbreak"}},
		{"null lookalike", []any{`\N`, "real"}},
		{"empty fields", []any{"", "", "z"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := EncodeCopyLine(tt.fields...)
			got, err := parseCopyLine(line, len(tt.fields))
			if err != nil {
				t.Fatalf("parseCopyLine(%q) failed: %v", line, err)
			}
			for i, want := range tt.fields {
				if want == nil {
					if got[i] != nil {
						t.Errorf("field %d = %v, want nil", i, got[i])
					}
					continue
				}
				if got[i] != want {
					t.Errorf("field %d = %v, want %v", i, got[i], want)
				}
			}
		})
	}
}

func TestParseCopyLine_Malformed(t *testing.T) {
	if _, err := parseCopyLine(`"unterminated`, 1); err == nil {
		t.Error("expected error for unterminated quote")
	}
	if _, err := parseCopyLine("a,b", 3); err == nil {
		t.Error("expected arity mismatch error")
	}
	if _, err := parseCopyLine(`"a"b,c`, 2); err == nil {
		t.Error("expected error for garbage after closing quote")
	}
}

// writeBatchRows streams n rows, each with one cell, through one batch copy
// stream and commits it. Safe to call from multiple goroutines.
func writeBatchRows(b *Backend, tbl *types.Table, col *types.Column, n int, base string) error {
	stream, err := b.BeginBatchCopy(context.Background(), testOwner, tbl.TableID)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		rowID := base + "-" + strings.Repeat("x", i+1)
		ns := time.Now().UnixNano()
		cache := map[string]any{col.ColumnID: "v"}
		raw, _ := json.Marshal(cache)
		if err := stream.WriteRow(EncodeCopyLine(rowID, tbl.TableID, string(raw), "v", ns)); err != nil {
			stream.Rollback()
			return err
		}
		if err := stream.WriteCell(EncodeCopyLine(rowID+"-cell", rowID, col.ColumnID, "v", nil, ns, ns)); err != nil {
			stream.Rollback()
			return err
		}
	}
	return stream.Commit()
}

func TestBatchCopy_CommitAndRollback(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "bulk")
	ctx := context.Background()

	if err := writeBatchRows(b, tbl, cols[0], 10, "row"); err != nil {
		t.Fatalf("copy commit failed: %v", err)
	}
	n, err := b.CountRows(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 10 {
		t.Errorf("expected 10 rows after commit, got %d", n)
	}

	// A rolled back stream leaves no trace.
	stream, err := b.BeginBatchCopy(ctx, testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("BeginBatchCopy failed: %v", err)
	}
	ns := time.Now().UnixNano()
	if err := stream.WriteRow(EncodeCopyLine("gone", tbl.TableID, "{}", "", ns)); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}
	if err := stream.WriteCell(EncodeCopyLine("gone-cell", "gone", cols[0].ColumnID, "v", nil, ns, ns)); err != nil {
		t.Fatalf("WriteCell failed: %v", err)
	}
	if err := stream.Rollback(); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	n, _ = b.CountRows(testOwner, tbl.TableID)
	if n != 10 {
		t.Errorf("expected 10 rows after rollback, got %d", n)
	}
}

func TestBatchCopy_ConcurrentBatchesAllCommit(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "parallel")

	// Batches contend for SQLite's single write lock; each must queue and
	// commit rather than fail.
	const batches, perBatch = 4, 50
	errs := make([]error, batches)
	var wg sync.WaitGroup
	for g := 0; g < batches; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			errs[g] = writeBatchRows(b, tbl, cols[0], perBatch, fmt.Sprintf("g%d", g))
		}(g)
	}
	wg.Wait()

	for g, err := range errs {
		if err != nil {
			t.Errorf("batch %d failed: %v", g, err)
		}
	}
	n, err := b.CountRows(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != batches*perBatch {
		t.Errorf("stored rows = %d, want %d", n, batches*perBatch)
	}
}

func TestBatchCopy_ForeignKeysEnforced(t *testing.T) {
	b := newTestBackend(t)
	tbl, cols := newTestTable(t, b, "orphans")

	stream, err := b.BeginBatchCopy(context.Background(), testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("BeginBatchCopy failed: %v", err)
	}
	ns := time.Now().UnixNano()
	// A cell referencing a row that was never written fails the batch.
	if err := stream.WriteCell(EncodeCopyLine("c1", "no-such-row", cols[0].ColumnID, "v", nil, ns, ns)); err != nil {
		t.Logf("WriteCell reported early: %v", err)
	}
	if err := stream.Commit(); err == nil {
		t.Fatal("expected Commit to report the foreign key violation")
	}
	n, _ := b.CountRows(testOwner, tbl.TableID)
	if n != 0 {
		t.Errorf("expected 0 rows after failed batch, got %d", n)
	}
}

func TestBatchCopy_ConsumerErrorSurfacesAndRollsBack(t *testing.T) {
	b := newTestBackend(t)
	tbl, _ := newTestTable(t, b, "badlines")

	stream, err := b.BeginBatchCopy(context.Background(), testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("BeginBatchCopy failed: %v", err)
	}
	// Wrong arity: the consumer stops and the batch must roll back.
	if err := stream.WriteRow("only,two"); err != nil {
		// Fast failure is acceptable; the error may also surface at Commit.
		t.Logf("WriteRow reported early: %v", err)
	}
	if err := stream.Commit(); err == nil {
		t.Fatal("expected Commit to report the consumer error")
	}

	n, err := b.CountRows(testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 rows after failed batch, got %d", n)
	}
}

func TestBatchCopy_WriteAfterCommitFails(t *testing.T) {
	b := newTestBackend(t)
	tbl, _ := newTestTable(t, b, "closed")

	stream, err := b.BeginBatchCopy(context.Background(), testOwner, tbl.TableID)
	if err != nil {
		t.Fatalf("BeginBatchCopy failed: %v", err)
	}
	if err := stream.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := stream.WriteRow("a,b,c,d,e"); err == nil {
		t.Error("expected WriteRow after Commit to fail")
	}
	// Rollback after Commit is a no-op.
	if err := stream.Rollback(); err != nil {
		t.Errorf("Rollback after Commit should be nil, got %v", err)
	}
}
