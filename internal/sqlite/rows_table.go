// This file implements row access for the SQLite backend, including the
// keyset-paginated page fetch used by interactive readers during ingestion.
package sqlite

import (
	"database/sql"
	"encoding/base64"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/petrel-data/gridbase/pkg/types"
)

// rowCursor is the decoded form of the opaque page cursor: the (creation
// time, id) tuple of the last row on the previous page. Tuple comparison
// keeps pagination monotonic under concurrent inserts; an offset would not.
type rowCursor struct {
	CreatedNs int64  `json:"c"`
	RowID     string `json:"r"`
}

// encodeRowCursor renders a cursor as URL-safe base64 over JSON.
func encodeRowCursor(createdNs int64, rowID string) string {
	raw, err := json.Marshal(rowCursor{CreatedNs: createdNs, RowID: rowID})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// decodeRowCursor parses an opaque cursor. Malformed input reports ok=false,
// which callers treat as "no cursor" rather than an error.
func decodeRowCursor(s string) (rowCursor, bool) {
	if s == "" {
		return rowCursor{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return rowCursor{}, false
	}
	var c rowCursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return rowCursor{}, false
	}
	if c.RowID == "" {
		return rowCursor{}, false
	}
	return c, true
}

// CreateRow inserts one empty row with a null cache entry per column.
func (b *Backend) CreateRow(owner, tableID string) (*types.Row, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	cols, err := b.ListColumns(owner, tableID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cache := make(map[string]any, len(cols))
	for _, c := range cols {
		cache[c.ColumnID] = nil
	}
	cacheJSON, err := json.Marshal(cache)
	if err != nil {
		return nil, fmt.Errorf("marshaling row cache: %w", err)
	}

	r := &types.Row{
		RowID:     generateUUID(),
		TableID:   tableID,
		Cache:     cache,
		Search:    "",
		CreatedAt: now,
	}
	_, err = db.Exec(
		"INSERT INTO rows (row_id, table_id, cache, search, created_ns) VALUES (?, ?, ?, ?, ?)",
		r.RowID, tableID, string(cacheJSON), "", now.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("persisting row: %w", err)
	}
	return r, nil
}

// GetRow returns one row with its denormalized cache.
func (b *Backend) GetRow(owner, tableID, rowID string) (*types.Row, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if rowID == "" {
		return nil, types.ErrInvalidID
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	row := db.QueryRow(
		"SELECT row_id, table_id, cache, search, created_ns FROM rows WHERE row_id = ? AND table_id = ?",
		rowID, tableID,
	)
	r, err := hydrateRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting row %s: %w", rowID, err)
	}
	return r, nil
}

// CountRows returns the number of rows in the table.
func (b *Backend) CountRows(owner, tableID string) (int64, error) {
	db, err := b.requireAttached()
	if err != nil {
		return 0, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return 0, err
	}

	var n int64
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM rows WHERE table_id = ?", tableID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting rows: %w", err)
	}
	return n, nil
}

// FetchRowPage returns one page of rows ordered by (created_ns, row_id)
// ascending. The query probes limit+1 rows; when the probe fills, the page
// is truncated to limit and the last kept row's tuple becomes the next
// cursor. With limit <= 0 the page size policy applies: a fixed first page,
// then one page sized to cover the remainder.
func (b *Backend) FetchRowPage(owner, tableID, cursor string, limit int) (*types.RowPage, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	total, err := b.CountRows(owner, tableID)
	if err != nil {
		return nil, err
	}

	cur, hasCursor := decodeRowCursor(cursor)
	if limit <= 0 {
		if hasCursor {
			limit = int(total)
			if limit < types.FirstPageSize {
				limit = types.FirstPageSize
			}
		} else {
			limit = types.FirstPageSize
		}
	}

	query := "SELECT row_id, table_id, cache, search, created_ns FROM rows WHERE table_id = ?"
	args := []any{tableID}
	if hasCursor {
		// Strict tuple comparison: (created_ns, row_id) > (cursor tuple).
		query += " AND (created_ns > ? OR (created_ns = ? AND row_id > ?))"
		args = append(args, cur.CreatedNs, cur.CreatedNs, cur.RowID)
	}
	query += " ORDER BY created_ns ASC, row_id ASC LIMIT ?"
	args = append(args, limit+1)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching row page: %w", err)
	}
	defer rows.Close()

	var results []*types.Row
	for rows.Next() {
		r, err := hydrateRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}

	page := &types.RowPage{TotalCount: total}
	if len(results) > limit {
		results = results[:limit]
		last := results[len(results)-1]
		page.NextCursor = encodeRowCursor(last.CreatedAt.UnixNano(), last.RowID)
		page.HasMore = true
	}
	if results == nil {
		results = []*types.Row{}
	}
	page.Rows = results
	return page, nil
}

// hydrateRow converts one SQLite row into a *types.Row. scan abstracts over
// sql.Row and sql.Rows.
func hydrateRow(scan func(dest ...any) error) (*types.Row, error) {
	var r types.Row
	var cacheJSON string
	var createdNs int64
	if err := scan(&r.RowID, &r.TableID, &cacheJSON, &r.Search, &createdNs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cacheJSON), &r.Cache); err != nil {
		return nil, fmt.Errorf("parsing row cache: %w", err)
	}
	r.CreatedAt = time.Unix(0, createdNs).UTC()
	return &r, nil
}
