package types

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultViewName is the permanent default view created with every table.
// It can never be deleted, and selecting it always resets the UI state to
// all-columns-visible with no filters, sort, or search.
const DefaultViewName = "Grid view"

// Filter group logic operators.
const (
	FilterLogicAnd = "and"
	FilterLogicOr  = "or"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// View represents a named, versioned saved configuration over a table.
// The server is the sole authority for Version: it increments by exactly 1
// on every accepted patch apply and is never assigned client-side.
type View struct {
	ViewID    string
	TableID   string
	Name      string
	Config    ViewConfig
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsDefault reports whether the view is the table's permanent default.
func (v *View) IsDefault() bool {
	return v.Name == DefaultViewName
}

// ViewConfig holds a view's editing state: filters, sort, column visibility,
// and free-text search.
type ViewConfig struct {
	Filters []FilterGroup   `json:"filters"`
	Sort    []SortKey       `json:"sort"`
	Columns []ColumnSetting `json:"columns"`
	Search  string          `json:"search"`
}

// FilterGroup is an ordered list of conditions joined by one logic operator.
type FilterGroup struct {
	ID         string            `json:"id"`
	Logic      string            `json:"logic"` // FilterLogicAnd or FilterLogicOr
	Conditions []FilterCondition `json:"conditions"`
}

// FilterCondition matches one column against an operator and a value.
type FilterCondition struct {
	ColumnID string `json:"columnId"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// SortKey orders rows by one column.
type SortKey struct {
	ColumnID  string `json:"columnId"`
	Direction string `json:"direction"`
}

// ColumnSetting controls one column's visibility and position in a view.
type ColumnSetting struct {
	ColumnID string `json:"columnId"`
	Visible  bool   `json:"visible"`
	Order    int    `json:"order"`
}

// DefaultViewConfig returns the reset state for a view: all given columns
// visible in ordinal order, no filters, no sort, empty search.
func DefaultViewConfig(cols []*Column) ViewConfig {
	settings := make([]ColumnSetting, 0, len(cols))
	for i, c := range cols {
		settings = append(settings, ColumnSetting{ColumnID: c.ColumnID, Visible: true, Order: i})
	}
	return ViewConfig{
		Filters: []FilterGroup{},
		Sort:    []SortKey{},
		Columns: settings,
		Search:  "",
	}
}

// Apply mutates the config according to one patch. Set replaces the value at
// the path wholesale. Merge is only meaningful for filters, where incoming
// groups upsert by group id and an empty incoming list clears all groups;
// merge on any other path degrades to set, since those paths carry no
// partial-update semantics.
func (vc *ViewConfig) Apply(p Patch) error {
	if err := p.Validate(); err != nil {
		return err
	}
	switch p.Path {
	case PatchPathFilters:
		groups, err := decodeFilterGroups(p.Value)
		if err != nil {
			return err
		}
		if p.Op == PatchOpMerge {
			vc.Filters = mergeFilterGroups(vc.Filters, groups)
		} else {
			vc.Filters = groups
		}
	case PatchPathSort:
		keys, err := decodeAs[[]SortKey](p.Value)
		if err != nil {
			return err
		}
		vc.Sort = keys
	case PatchPathColumns:
		settings, err := decodeAs[[]ColumnSetting](p.Value)
		if err != nil {
			return err
		}
		vc.Columns = settings
	case PatchPathSearch:
		s, err := decodeAs[string](p.Value)
		if err != nil {
			return err
		}
		vc.Search = s
	}
	return nil
}

// mergeFilterGroups upserts incoming groups into existing by group id,
// preserving existing order for updated groups and appending new ones.
// An empty incoming list means "clear all".
func mergeFilterGroups(existing, incoming []FilterGroup) []FilterGroup {
	if len(incoming) == 0 {
		return []FilterGroup{}
	}
	merged := make([]FilterGroup, len(existing))
	copy(merged, existing)
	for _, in := range incoming {
		replaced := false
		for i, g := range merged {
			if g.ID == in.ID {
				merged[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, in)
		}
	}
	return merged
}

// decodeFilterGroups converts a patch value into filter groups, accepting
// either the typed slice or a JSON-decoded any tree.
func decodeFilterGroups(v any) ([]FilterGroup, error) {
	return decodeAs[[]FilterGroup](v)
}

// decodeAs converts a patch value to T. Patch values arrive either as the
// concrete Go type (in-process callers) or as the generic tree produced by
// JSON decoding; a marshal round trip covers both.
func decodeAs[T any](v any) (T, error) {
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	var out T
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("encoding patch value: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding patch value: %w", ErrInvalidPatch)
	}
	return out, nil
}
