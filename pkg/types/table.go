package types

import "time"

// Column value types. Every column declares exactly one.
const (
	ColumnTypeText   = "text"
	ColumnTypeNumber = "number"
)

// validColumnTypes is the set of recognized column type values.
var validColumnTypes = map[string]bool{
	ColumnTypeText:   true,
	ColumnTypeNumber: true,
}

// ValidColumnType reports whether t is a recognized column type.
func ValidColumnType(t string) bool {
	return validColumnTypes[t]
}

// Table represents a user table: a named collection of typed columns and rows.
type Table struct {
	TableID   string    // UUID v7, generated on creation.
	OwnerID   string    // Acting user that owns the table.
	Name      string    // Human-readable name (required, non-empty).
	CreatedAt time.Time // Timestamp of creation.
	UpdatedAt time.Time // Timestamp of last modification.
}

// Column represents a typed column definition on a table.
type Column struct {
	ColumnID  string // UUID v7, generated on creation.
	TableID   string // Owning table.
	Name      string // Unique within the table.
	Type      string // One of the ColumnType constants.
	Ordinal   int    // Display position, 0-based.
	CreatedAt time.Time
}
