// Package viewsync implements the client-side view synchronization
// coordinator: it buffers live editing state as patches, debounces and
// coalesces them, and delivers them to the versioned view store with
// optimistic concurrency, conflict retry, and suspend/resume buffering.
package viewsync

import (
	"sort"

	"github.com/petrel-data/gridbase/pkg/types"
)

// Coalesce reduces a patch list to at most one patch per (op, path) pair,
// keeping the newest by timestamp. Pure: the input is not modified. Empty
// input yields empty output. Output order follows first appearance of each
// key in timestamp order, which keeps the result deterministic.
func Coalesce(patches []types.Patch) []types.Patch {
	if len(patches) == 0 {
		return []types.Patch{}
	}

	sorted := make([]types.Patch, len(patches))
	copy(sorted, patches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	type key struct{ op, path string }
	index := make(map[key]int)
	out := make([]types.Patch, 0, len(sorted))
	for _, p := range sorted {
		k := key{p.Op, p.Path}
		if i, ok := index[k]; ok {
			// Later patch on the same key fully supersedes the earlier one.
			out[i] = p
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}
