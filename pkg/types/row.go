package types

import "time"

// Row represents one record in a table. Cache is the denormalized
// column-id → value map written at last write time; a column added after the
// row was written has no cache entry, and readers must treat the absent key
// as null rather than rewriting stored rows.
type Row struct {
	RowID     string
	TableID   string
	Cache     map[string]any // column id → string | float64 | nil
	Search    string         // space-joined, case-normalized cache values
	CreatedAt time.Time
}

// CacheValue returns the cached value for a column, applying the
// absent-key-means-null read semantics.
func (r *Row) CacheValue(columnID string) any {
	if r.Cache == nil {
		return nil
	}
	v, ok := r.Cache[columnID]
	if !ok {
		return nil
	}
	return v
}

// Cell represents one typed value at a (row, column) intersection. Exactly
// one of TextValue and NumberValue is populated, matching the column's
// declared type; the other slot stays nil.
type Cell struct {
	CellID      string
	RowID       string
	ColumnID    string
	TextValue   *string
	NumberValue *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Value returns the populated slot, or nil when both slots are empty.
func (c *Cell) Value() any {
	if c.TextValue != nil {
		return *c.TextValue
	}
	if c.NumberValue != nil {
		return *c.NumberValue
	}
	return nil
}

// RowPage is one page of a keyset-paginated row listing.
type RowPage struct {
	Rows       []*Row
	NextCursor string // opaque; empty when HasMore is false
	HasMore    bool
	TotalCount int64
}

// Page size policy: the first page is fixed; later pages request the
// remainder in one round trip.
const FirstPageSize = 500
