// This file implements table CRUD: creation with the seeded default view,
// owner-scoped listing, and guarded deletion with full cascade.
package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/petrel-data/gridbase/pkg/types"
)

// CreateTable creates a table owned by owner, plus its permanent default
// "Grid view" at version 1.
func (b *Backend) CreateTable(owner, name string) (*types.Table, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, types.ErrInvalidName
	}

	now := time.Now().UTC()
	t := &types.Table{
		TableID:   generateUUID(),
		OwnerID:   owner,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO tables (table_id, owner_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		t.TableID, owner, name, now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("persisting table: %w", err)
	}

	// Every table carries its default view from birth.
	if err := insertView(tx, t.TableID, types.DefaultViewName, types.DefaultViewConfig(nil), now); err != nil {
		return nil, fmt.Errorf("seeding default view: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing table: %w", err)
	}
	return t, nil
}

// ListTables returns the owner's tables ordered by creation time.
func (b *Backend) ListTables(owner string) ([]*types.Table, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT table_id, owner_id, name, created_at, updated_at FROM tables WHERE owner_id = ? ORDER BY created_at ASC",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching tables: %w", err)
	}
	defer rows.Close()

	var results []*types.Table
	for rows.Next() {
		t, err := hydrateTable(rows)
		if err != nil {
			return nil, fmt.Errorf("hydrating table: %w", err)
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tables: %w", err)
	}

	if results == nil {
		results = []*types.Table{}
	}
	return results, nil
}

// DeleteTable removes a table and cascades to columns, rows, cells, and
// views. Deleting the owner's last table returns ErrLastTable.
func (b *Backend) DeleteTable(owner, tableID string) error {
	db, err := b.requireAttached()
	if err != nil {
		return err
	}
	if tableID == "" {
		return types.ErrInvalidID
	}

	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return err
	}

	var total int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM tables WHERE owner_id = ?", owner,
	).Scan(&total); err != nil {
		return fmt.Errorf("counting tables: %w", err)
	}
	if total <= 1 {
		return types.ErrLastTable
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM cells WHERE row_id IN (SELECT row_id FROM rows WHERE table_id = ?)", tableID,
	); err != nil {
		return fmt.Errorf("deleting cells: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM rows WHERE table_id = ?", tableID); err != nil {
		return fmt.Errorf("deleting rows: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM views WHERE table_id = ?", tableID); err != nil {
		return fmt.Errorf("deleting views: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM columns WHERE table_id = ?", tableID); err != nil {
		return fmt.Errorf("deleting columns: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM tables WHERE table_id = ?", tableID); err != nil {
		return fmt.Errorf("deleting table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing table deletion: %w", err)
	}
	return nil
}

// checkTableOwned verifies the table exists and belongs to owner.
// Ownership misses read as not-found so table ids don't leak across users.
func (b *Backend) checkTableOwned(db *sql.DB, owner, tableID string) error {
	var one int
	err := db.QueryRow(
		"SELECT 1 FROM tables WHERE table_id = ? AND owner_id = ?",
		tableID, owner,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking table ownership: %w", err)
	}
	return nil
}

// hydrateTable converts a row from sql.Rows into a *types.Table.
func hydrateTable(rows *sql.Rows) (*types.Table, error) {
	var t types.Table
	var createdAt, updatedAt string
	if err := rows.Scan(&t.TableID, &t.OwnerID, &t.Name, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	t.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &t, nil
}
