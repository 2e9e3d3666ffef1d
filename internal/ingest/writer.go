// This file implements the per-batch streaming row writer: it synthesizes
// rows and cells for one batch and streams them through the store's bulk
// copy protocol.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/petrel-data/gridbase/internal/sqlite"
	"github.com/petrel-data/gridbase/pkg/types"
)

// CopyOpener is the slice of the store the writer needs: opening bulk batch
// copy streams.
type CopyOpener interface {
	BeginBatchCopy(ctx context.Context, owner, tableID string) (types.BatchCopy, error)
}

// StreamingRowWriter writes one batch of synthetic rows and cells through a
// single copy stream, one transaction per batch. On any error the whole
// batch rolls back and the error propagates to the pipeline.
type StreamingRowWriter struct {
	store CopyOpener
	owner string
}

// NewStreamingRowWriter returns a writer bound to one store and owner.
func NewStreamingRowWriter(store CopyOpener, owner string) *StreamingRowWriter {
	return &StreamingRowWriter{store: store, owner: owner}
}

// WriteBatch generates size rows over the given columns and streams them in.
// The batch is atomic: every row and cell commits together or not at all.
func (w *StreamingRowWriter) WriteBatch(ctx context.Context, tableID string, cols []*types.Column, size int, seed int64) error {
	stream, err := w.store.BeginBatchCopy(ctx, w.owner, tableID)
	if err != nil {
		return fmt.Errorf("opening batch copy: %w", err)
	}

	if err := w.streamBatch(ctx, stream, tableID, cols, size, seed); err != nil {
		stream.Rollback()
		return err
	}
	if err := stream.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// streamBatch writes every line for the batch, respecting stream
// backpressure (writes block until the stream drains). Each row line goes
// out before the row's cell lines; cells reference their row and foreign
// keys are checked statement by statement.
func (w *StreamingRowWriter) streamBatch(ctx context.Context, stream types.BatchCopy, tableID string, cols []*types.Column, size int, seed int64) error {
	synth := NewSynthesizer(seed)
	cellLines := make([]string, 0, len(cols))

	for i := 0; i < size; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		rowID := newRowID()
		nowNs := time.Now().UnixNano()
		cache := make(map[string]any, len(cols))
		searchParts := make([]string, 0, len(cols))
		cellLines = cellLines[:0]

		for _, col := range cols {
			v := synth.Value(col)
			cache[col.ColumnID] = v

			var textVal, numVal any
			switch t := v.(type) {
			case string:
				textVal = t
				searchParts = append(searchParts, strings.ToLower(t))
			case float64:
				numVal = t
				searchParts = append(searchParts, strconv.FormatFloat(t, 'f', -1, 64))
			}
			cellLines = append(cellLines,
				sqlite.EncodeCopyLine(newRowID(), rowID, col.ColumnID, textVal, numVal, nowNs, nowNs))
		}

		cacheJSON, err := json.Marshal(cache)
		if err != nil {
			return fmt.Errorf("marshaling row cache: %w", err)
		}
		search := strings.Join(searchParts, " ")

		rowLine := sqlite.EncodeCopyLine(rowID, tableID, string(cacheJSON), search, nowNs)
		if err := stream.WriteRow(rowLine); err != nil {
			return fmt.Errorf("streaming row: %w", err)
		}
		for _, line := range cellLines {
			if err := stream.WriteCell(line); err != nil {
				return fmt.Errorf("streaming cell: %w", err)
			}
		}
	}
	return nil
}

// newRowID allocates a fresh UUID v7, falling back to v4 like the rest of
// the system. Ids are globally unique, so re-running an ingestion can never
// collide with committed rows.
func newRowID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
