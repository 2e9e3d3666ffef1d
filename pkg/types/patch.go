package types

import "time"

// Patch operations.
const (
	PatchOpSet   = "set"
	PatchOpMerge = "merge"
)

// Patch paths: the view config fields a patch may target.
const (
	PatchPathFilters = "filters"
	PatchPathSort    = "sort"
	PatchPathColumns = "columns"
	PatchPathSearch  = "search"
)

var validPatchOps = map[string]bool{
	PatchOpSet:   true,
	PatchOpMerge: true,
}

var validPatchPaths = map[string]bool{
	PatchPathFilters: true,
	PatchPathSort:    true,
	PatchPathColumns: true,
	PatchPathSearch:  true,
}

// Patch is a single path-scoped replacement applied to a view's stored
// configuration. Timestamp is the client-side creation time, used for
// last-writer-wins coalescing.
type Patch struct {
	Op        string    `json:"op"`
	Path      string    `json:"path"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the operation and path. Values are validated on apply.
func (p Patch) Validate() error {
	if !validPatchOps[p.Op] {
		return ErrInvalidPatch
	}
	if !validPatchPaths[p.Path] {
		return ErrInvalidPatch
	}
	return nil
}
