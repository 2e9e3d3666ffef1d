// This file implements column definition CRUD for the SQLite backend.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/petrel-data/gridbase/pkg/types"
)

// AddColumn appends a typed column to a table. Column names are unique
// within a table; duplicates return ErrDuplicateName. Existing rows are not
// rewritten: their caches lack the new key and read as null.
func (b *Backend) AddColumn(owner, tableID, name, colType string) (*types.Column, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, types.ErrInvalidName
	}
	if !types.ValidColumnType(colType) {
		return nil, types.ErrTypeMismatch
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	var dupID string
	err = db.QueryRow(
		"SELECT column_id FROM columns WHERE table_id = ? AND name = ?",
		tableID, name,
	).Scan(&dupID)
	if err == nil {
		return nil, types.ErrDuplicateName
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking column name uniqueness: %w", err)
	}

	var ordinal int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM columns WHERE table_id = ?", tableID,
	).Scan(&ordinal); err != nil {
		return nil, fmt.Errorf("counting columns: %w", err)
	}

	now := time.Now().UTC()
	col := &types.Column{
		ColumnID:  generateUUID(),
		TableID:   tableID,
		Name:      name,
		Type:      colType,
		Ordinal:   ordinal,
		CreatedAt: now,
	}

	_, err = db.Exec(
		"INSERT INTO columns (column_id, table_id, name, col_type, ordinal, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		col.ColumnID, tableID, name, colType, ordinal, now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("persisting column: %w", err)
	}
	return col, nil
}

// ListColumns returns a table's columns in ordinal order.
func (b *Backend) ListColumns(owner, tableID string) ([]*types.Column, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	rows, err := db.Query(
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

	if results == nil {
		results = []*types.Column{}
	}
	return results, nil
}

// hydrateColumn converts a row from sql.Rows into a *types.Column.
func hydrateColumn(rows *sql.Rows) (*types.Column, error) {
	var c types.Column
	var createdAt string
	if err := rows.Scan(&c.ColumnID, &c.TableID, &c.Name, &c.Type, &c.Ordinal, &createdAt); err != nil {
		return nil, err
	}
	var err error
	c.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &c, nil
}
