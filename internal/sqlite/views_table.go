// This file implements view storage: named, version-stamped view records and
// the version-checked patch apply at the heart of optimistic concurrency.
// The server is the sole authority for version numbers.
package sqlite

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"github.com/petrel-data/gridbase/pkg/types"
)

// ListViews returns a table's views ordered by creation time.
func (b *Backend) ListViews(owner, tableID string) ([]*types.View, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	rows, err := db.Query(
		"SELECT view_id, table_id, name, filters, sort_order, columns, search, version, created_at, updated_at FROM views WHERE table_id = ? ORDER BY created_at ASC",
		tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetching views: %w", err)
	}
	defer rows.Close()

	var results []*types.View
	for rows.Next() {
		v, err := hydrateView(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("hydrating view: %w", err)
		}
		results = append(results, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating views: %w", err)
	}

	if results == nil {
		results = []*types.View{}
	}
	return results, nil
}

// CreateView creates a named view with the default config at version 1.
// Names are unique within a table.
func (b *Backend) CreateView(owner, tableID, name string) (*types.View, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, types.ErrInvalidName
	}
	if err := b.checkTableOwned(db, owner, tableID); err != nil {
		return nil, err
	}

	var dupID string
	err = db.QueryRow(
		"SELECT view_id FROM views WHERE table_id = ? AND name = ?",
		tableID, name,
	).Scan(&dupID)
	if err == nil {
		return nil, types.ErrDuplicateName
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("checking view name uniqueness: %w", err)
	}

	cols, err := b.ListColumns(owner, tableID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cfg := types.DefaultViewConfig(cols)

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	viewID, err := insertViewTx(tx, tableID, name, cfg, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing view: %w", err)
	}

	return &types.View{
		ViewID:    viewID,
		TableID:   tableID,
		Name:      name,
		Config:    cfg,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetView returns one view.
func (b *Backend) GetView(owner, viewID string) (*types.View, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if viewID == "" {
		return nil, types.ErrInvalidID
	}

	row := db.QueryRow(
		`SELECT v.view_id, v.table_id, v.name, v.filters, v.sort_order, v.columns, v.search, v.version, v.created_at, v.updated_at
		 FROM views v JOIN tables t ON t.table_id = v.table_id
		 WHERE v.view_id = ? AND t.owner_id = ?`,
		viewID, owner,
	)
	v, err := hydrateView(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting view %s: %w", viewID, err)
	}
	return v, nil
}

// DeleteView removes a view. The table's permanent default view is
// protected server-side: deleting it fails regardless of the caller.
func (b *Backend) DeleteView(owner, viewID string) error {
	db, err := b.requireAttached()
	if err != nil {
		return err
	}

	v, err := b.GetView(owner, viewID)
	if err != nil {
		return err
	}
	if v.IsDefault() {
		return types.ErrDefaultViewProtected
	}

	if _, err := db.Exec("DELETE FROM views WHERE view_id = ?", viewID); err != nil {
		return fmt.Errorf("deleting view: %w", err)
	}
	return nil
}

// ApplyViewPatches applies a patch batch against baseVersion in one
// transaction. Patches are applied in timestamp order. On success the
// version advances by exactly 1 and the updated view is returned; a stale
// baseVersion returns a *VersionConflictError carrying the server's current
// version so the client can refetch and retry.
func (b *Backend) ApplyViewPatches(owner, viewID string, baseVersion int64, patches []types.Patch) (*types.View, error) {
	db, err := b.requireAttached()
	if err != nil {
		return nil, err
	}
	if viewID == "" {
		return nil, types.ErrInvalidID
	}
	for _, p := range patches {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(
		`SELECT v.view_id, v.table_id, v.name, v.filters, v.sort_order, v.columns, v.search, v.version, v.created_at, v.updated_at
		 FROM views v JOIN tables t ON t.table_id = v.table_id
		 WHERE v.view_id = ? AND t.owner_id = ?`,
		viewID, owner,
	)
	v, err := hydrateView(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("loading view %s: %w", viewID, err)
	}

	if v.Version != baseVersion {
		return nil, &types.VersionConflictError{
			ViewID:         viewID,
			GivenVersion:   baseVersion,
			CurrentVersion: v.Version,
		}
	}

	ordered := make([]types.Patch, len(patches))
	copy(ordered, patches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	for _, p := range ordered {
		if err := v.Config.Apply(p); err != nil {
			return nil, fmt.Errorf("applying patch %s %s: %w", p.Op, p.Path, err)
		}
	}

	filtersJSON, sortJSON, columnsJSON, err := marshalViewConfig(v.Config)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	res, err := tx.Exec(
		"UPDATE views SET filters = ?, sort_order = ?, columns = ?, search = ?, version = version + 1, updated_at = ? WHERE view_id = ? AND version = ?",
		filtersJSON, sortJSON, columnsJSON, v.Config.Search, now.Format(time.RFC3339), viewID, baseVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("persisting view: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking view update: %w", err)
	}
	if n != 1 {
		// Lost a race between the read and the guarded update.
		return nil, &types.VersionConflictError{
			ViewID:       viewID,
			GivenVersion: baseVersion,
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing view patches: %w", err)
	}

	v.Version = baseVersion + 1
	v.UpdatedAt = now
	return v, nil
}

// insertViewTx persists a view record at version 1 inside a transaction and
// returns the generated id.
func insertViewTx(tx *sql.Tx, tableID, name string, cfg types.ViewConfig, now time.Time) (string, error) {
	filtersJSON, sortJSON, columnsJSON, err := marshalViewConfig(cfg)
	if err != nil {
		return "", err
	}
	viewID := generateUUID()
	_, err = tx.Exec(
		"INSERT INTO views (view_id, table_id, name, filters, sort_order, columns, search, version, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)",
		viewID, tableID, name, filtersJSON, sortJSON, columnsJSON, cfg.Search,
		now.Format(time.RFC3339), now.Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("persisting view: %w", err)
	}
	return viewID, nil
}

// insertView is the CreateTable helper seeding the default view.
func insertView(tx *sql.Tx, tableID, name string, cfg types.ViewConfig, now time.Time) error {
	_, err := insertViewTx(tx, tableID, name, cfg, now)
	return err
}

// marshalViewConfig serializes the three JSON-typed config columns.
func marshalViewConfig(cfg types.ViewConfig) (filters, sortOrder, columns string, err error) {
	f, err := json.Marshal(cfg.Filters)
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling filters: %w", err)
	}
	s, err := json.Marshal(cfg.Sort)
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling sort: %w", err)
	}
	c, err := json.Marshal(cfg.Columns)
	if err != nil {
		return "", "", "", fmt.Errorf("marshaling columns: %w", err)
	}
	return string(f), string(s), string(c), nil
}

// hydrateView converts one SQLite row into a *types.View.
func hydrateView(scan func(dest ...any) error) (*types.View, error) {
	var v types.View
	var filtersJSON, sortJSON, columnsJSON string
	var createdAt, updatedAt string
	if err := scan(&v.ViewID, &v.TableID, &v.Name, &filtersJSON, &sortJSON, &columnsJSON, &v.Config.Search, &v.Version, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(filtersJSON), &v.Config.Filters); err != nil {
		return nil, fmt.Errorf("parsing filters: %w", err)
	}
	if err := json.Unmarshal([]byte(sortJSON), &v.Config.Sort); err != nil {
		return nil, fmt.Errorf("parsing sort: %w", err)
	}
	if err := json.Unmarshal([]byte(columnsJSON), &v.Config.Columns); err != nil {
		return nil, fmt.Errorf("parsing columns: %w", err)
	}
	var err error
	v.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	v.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &v, nil
}
