// This file holds the per-view queue bookkeeping: pending patches under
// debounce, queued batches awaiting the wire, the exact in-flight set
// retained for conflict retry, and the client's best-known server version.
package viewsync

import (
	"time"

	"github.com/petrel-data/gridbase/pkg/types"
)

// queueState is the client-owned, ephemeral sync state for one view.
// Created lazily on the first patch for a view; dropped when the view is
// deleted or the table changes. All access is under the coordinator's lock.
type queueState struct {
	viewID  string
	tableID string

	// pending collects patches during the debounce window.
	pending []types.Patch
	// queued holds patches promoted by debounce expiry, awaiting a send
	// slot. A batch queued while another is in flight waits here; it is
	// never sent in parallel.
	queued []types.Patch
	// inFlight is the exact coalesced batch on the wire, retained so a
	// version conflict can resend the same set, not a stale superset.
	inFlight []types.Patch

	// currentVersion is the client's best-known server version. Only the
	// coordinator's success and conflict handlers mutate it; the client
	// never speculates.
	currentVersion int64

	processing bool
	retryCount int
	lastRetry  time.Time

	debounce *time.Timer
}

// addPending replaces any pending patch with the same path and appends p,
// so the debounce window holds at most one patch per path.
func (q *queueState) addPending(p types.Patch) {
	q.pending = removePath(q.pending, p.Path)
	q.pending = append(q.pending, p)
}

// promotePending moves all pending patches into the queue.
func (q *queueState) promotePending() {
	q.queued = append(q.queued, q.pending...)
	q.pending = nil
}

// stopDebounce cancels a running debounce timer.
func (q *queueState) stopDebounce() {
	if q.debounce != nil {
		q.debounce.Stop()
		q.debounce = nil
	}
}

// removePath filters out patches targeting path, preserving order.
func removePath(patches []types.Patch, path string) []types.Patch {
	out := patches[:0]
	for _, p := range patches {
		if p.Path != path {
			out = append(out, p)
		}
	}
	return out
}
