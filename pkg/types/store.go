package types

import "context"

// Store defines backend-agnostic storage access for tables, columns, rows,
// cells, and views. Callers attach to a backend, operate, and detach when
// done. Every operation is scoped to the owning user passed as owner.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrStoreDetached.
	Detach() error

	// CreateTable creates a table plus its permanent default view.
	CreateTable(owner, name string) (*Table, error)

	// ListTables returns the owner's tables ordered by creation time.
	ListTables(owner string) ([]*Table, error)

	// DeleteTable removes a table and everything under it. Deleting the
	// owner's last table returns ErrLastTable.
	DeleteTable(owner, tableID string) error

	// AddColumn appends a typed column. Duplicate names within a table
	// return ErrDuplicateName.
	AddColumn(owner, tableID, name, colType string) (*Column, error)

	// ListColumns returns a table's columns in ordinal order.
	ListColumns(owner, tableID string) ([]*Column, error)

	// CreateRow inserts one empty row with a null cache entry per column.
	CreateRow(owner, tableID string) (*Row, error)

	// GetRow returns one row with its denormalized cache.
	GetRow(owner, tableID, rowID string) (*Row, error)

	// UpsertCell writes one cell value, keyed (row, column), and keeps the
	// row's cache and search text consistent. The value must match the
	// column's declared type or ErrTypeMismatch is returned.
	UpsertCell(owner, tableID, rowID, columnID string, value any) (*Cell, error)

	// FetchRowPage returns one keyset-ordered page of rows. A malformed
	// cursor falls back to the first page, never an error.
	FetchRowPage(owner, tableID, cursor string, limit int) (*RowPage, error)

	// CountRows returns the number of rows in the table.
	CountRows(owner, tableID string) (int64, error)

	// BeginBatchCopy opens a line-streaming bulk insert for one batch of
	// rows and their cells, bound to a single transaction with relaxed
	// commit durability. Each row must be written before its cells.
	BeginBatchCopy(ctx context.Context, owner, tableID string) (BatchCopy, error)

	// ListViews returns a table's views ordered by creation time.
	ListViews(owner, tableID string) ([]*View, error)

	// CreateView creates a named view with the default config at version 1.
	CreateView(owner, tableID, name string) (*View, error)

	// DeleteView removes a view. The permanent default view returns
	// ErrDefaultViewProtected.
	DeleteView(owner, viewID string) error

	// GetView returns one view.
	GetView(owner, viewID string) (*View, error)

	// ApplyViewPatches applies a patch batch against baseVersion in one
	// transaction. On success the view's version advances by exactly 1 and
	// the updated view is returned. A stale baseVersion returns a
	// *VersionConflictError carrying the server's current version.
	ApplyViewPatches(owner, viewID string, baseVersion int64, patches []Patch) (*View, error)
}

// BatchCopy is a line-oriented bulk insert stream for one batch. Rows and
// cells share one transaction, so a batch commits or rolls back as a unit.
// WriteRow and WriteCell accept one encoded record and block when the
// stream's internal buffer is full, giving writers backpressure instead of
// unbounded memory growth. Exactly one of Commit or Rollback must be
// called; both are safe to call after the stream has already failed.
type BatchCopy interface {
	WriteRow(line string) error
	WriteCell(line string) error
	Commit() error
	Rollback() error
}
