// Package sqlite implements the SQLite storage backend for gridbase.
package sqlite

// Schema DDL for all tables. Metadata entities (tables, columns, views) keep
// RFC3339 text timestamps; rows and cells store integer unix nanoseconds
// because the keyset page cursor needs a strict total order that second
// precision text cannot provide.
const (
	createTables = `CREATE TABLE tables (
    table_id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    name TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createColumns = `CREATE TABLE columns (
    column_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    col_type TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (table_id) REFERENCES tables(table_id)
);`

	createRows = `CREATE TABLE rows (
    row_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    cache TEXT NOT NULL,
    search TEXT NOT NULL,
    created_ns INTEGER NOT NULL,
    FOREIGN KEY (table_id) REFERENCES tables(table_id)
);`

	createCells = `CREATE TABLE cells (
    cell_id TEXT PRIMARY KEY,
    row_id TEXT NOT NULL,
    column_id TEXT NOT NULL,
    text_value TEXT,
    number_value REAL,
    created_ns INTEGER NOT NULL,
    updated_ns INTEGER NOT NULL,
    FOREIGN KEY (row_id) REFERENCES rows(row_id),
    FOREIGN KEY (column_id) REFERENCES columns(column_id)
);`

	createViews = `CREATE TABLE views (
    view_id TEXT PRIMARY KEY,
    table_id TEXT NOT NULL,
    name TEXT NOT NULL,
    filters TEXT NOT NULL,
    sort_order TEXT NOT NULL,
    columns TEXT NOT NULL,
    search TEXT NOT NULL,
    version INTEGER NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (table_id) REFERENCES tables(table_id)
);`
)

// Index DDL for common queries. The rows keyset index carries the cursor
// tuple order (table_id, created_ns, row_id).
const (
	idxTablesOwner    = `CREATE INDEX idx_tables_owner ON tables(owner_id);`
	idxColumnsTable   = `CREATE UNIQUE INDEX idx_columns_table_name ON columns(table_id, name);`
	idxColumnsOrdinal = `CREATE INDEX idx_columns_table_ordinal ON columns(table_id, ordinal);`
	idxRowsKeyset     = `CREATE INDEX idx_rows_keyset ON rows(table_id, created_ns, row_id);`
	idxCellsRowColumn = `CREATE UNIQUE INDEX idx_cells_row_column ON cells(row_id, column_id);`
	idxCellsColumn    = `CREATE INDEX idx_cells_column ON cells(column_id);`
	idxViewsTable     = `CREATE INDEX idx_views_table ON views(table_id);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createTables,
	createColumns,
	createRows,
	createCells,
	createViews,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxTablesOwner,
	idxColumnsTable,
	idxColumnsOrdinal,
	idxRowsKeyset,
	idxCellsRowColumn,
	idxCellsColumn,
	idxViewsTable,
}
