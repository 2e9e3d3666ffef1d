// This file implements per-cell edit persistence: a simple upsert keyed
// (row, column) that keeps the row's denormalized cache and search text
// consistent with the written value.
package sqlite

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/petrel-data/gridbase/pkg/types"
)

// UpsertCell writes one cell value. The value must match the column's
// declared type (string for text, numeric for number); nil clears the cell.
// The row's cache entry and search string are updated in the same
// transaction so readers never observe a cell/cache mismatch.
func (b *Backend) UpsertCell(owner, tableID, rowID, columnID string, value any) (*types.Cell, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if rowID == "" || columnID == "" {
		return nil, types.ErrInvalidID
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	var colType string
	err = db.QueryRow(
		"SELECT col_type FROM columns WHERE column_id = ? AND table_id = ?",
		columnID, tableID,
	).Scan(&colType)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading column: %w", err)
	}

	textVal, numVal, err := coerceCellValue(colType, value)
	if err != nil {
		return nil, err
	}

	var cacheJSON string
	err = db.QueryRow(
		"SELECT cache FROM rows WHERE row_id = ? AND table_id = ?",
		rowID, tableID,
	).Scan(&cacheJSON)
	if err == sql.ErrNoRows {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading row cache: %w", err)
	}

	now := time.Now().UTC()
	nowNs := now.UnixNano()

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Keep an existing cell's identity across updates.
	cellID := ""
	createdNs := nowNs
	err = tx.QueryRow(
		"SELECT cell_id, created_ns FROM cells WHERE row_id = ? AND column_id = ?",
		rowID, columnID,
	).Scan(&cellID, &createdNs)
	if err == sql.ErrNoRows {
		cellID = generateUUID()
		createdNs = nowNs
		_, err = tx.Exec(
			"INSERT INTO cells (cell_id, row_id, column_id, text_value, number_value, created_ns, updated_ns) VALUES (?, ?, ?, ?, ?, ?, ?)",
			cellID, rowID, columnID, textVal, numVal, createdNs, nowNs,
		)
	} else if err == nil {
		_, err = tx.Exec(
			"UPDATE cells SET text_value = ?, number_value = ?, updated_ns = ? WHERE cell_id = ?",
			textVal, numVal, nowNs, cellID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("persisting cell: %w", err)
	}

	var cache map[string]any
	if err := json.Unmarshal([]byte(cacheJSON), &cache); err != nil {
		return nil, fmt.Errorf("parsing row cache: %w", err)
	}
	if cache == nil {
		cache = make(map[string]any)
	}
	switch {
	case textVal != nil:
		cache[columnID] = *textVal
	case numVal != nil:
		cache[columnID] = *numVal
	default:
		cache[columnID] = nil
	}

	cols, err := listColumnsTx(tx, tableID)
	if err != nil {
		return nil, err
	}
	search := buildSearch(cache, cols)

	newCache, err := json.Marshal(cache)
	if err != nil {
		return nil, fmt.Errorf("marshaling row cache: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE rows SET cache = ?, search = ? WHERE row_id = ?",
		string(newCache), search, rowID,
	); err != nil {
		return nil, fmt.Errorf("updating row cache: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing cell: %w", err)
	}

	return &types.Cell{
		CellID:      cellID,
		RowID:       rowID,
		ColumnID:    columnID,
		TextValue:   textVal,
		NumberValue: numVal,
		CreatedAt:   time.Unix(0, createdNs).UTC(),
		UpdatedAt:   now,
	}, nil
}

// coerceCellValue maps an arbitrary value onto the populated-slot model:
// exactly one typed slot set, the other nil. Nil input clears both.
func coerceCellValue(colType string, value any) (*string, *float64, error) {
	if value == nil {
		return nil, nil, nil
	}
	switch colType {
	case types.ColumnTypeText:
		s, ok := value.(string)
		if !ok {
			return nil, nil, types.ErrTypeMismatch
		}
		return &s, nil, nil
	case types.ColumnTypeNumber:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case float32:
			f = float64(v)
		case int:
			f = float64(v)
		case int64:
			f = float64(v)
		default:
			return nil, nil, types.ErrTypeMismatch
		}
		return nil, &f, nil
	default:
		return nil, nil, types.ErrTypeMismatch
	}
}

// listColumnsTx loads a table's columns in ordinal order inside a transaction.
func listColumnsTx(tx *sql.Tx, tableID string) ([]*types.Column, error) {
	rows, err := tx.Query(
		"SELECT column_id, table_id, name, col_type, ordinal, created_at FROM columns WHERE table_id = ? ORDER BY ordinal ASC",
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching columns: %w", err)
	}
	defer rows.Close()

	var results []*types.Column
	for rows.Next() {
		col, err := hydrateColumn(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating column: %w", err)
		}
		results = append(results, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return results, nil
}

// buildSearch derives a row's search string: cache values in column ordinal
// order, stringified, lowercased, space-joined. Nil values are skipped.
func buildSearch(cache map[string]any, cols []*types.Column) string {
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		v, ok := cache[c.ColumnID]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			parts = append(parts, strings.ToLower(t))
		case float64:
			parts = append(parts, strconv.FormatFloat(t, 'f', -1, 64))
		default:
			parts = append(parts, strings.ToLower(fmt.Sprint(t)))
		}
	}
	return strings.Join(parts, " ")
}
