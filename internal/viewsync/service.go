// This file defines the server contract the coordinator consumes and the
// adapter binding it to a storage backend for one acting user.
package viewsync

import (
	"github.com/petrel-data/gridbase/pkg/types"
)

// ViewService is the server-side view contract the coordinator talks to.
type ViewService interface {
	// ListViews returns the authoritative views for a table, including
	// current versions.
	ListViews(tableID string) ([]*types.View, error)

	// CreateView creates a named view and returns the committed record.
	CreateView(tableID, name string) (*types.View, error)

	// DeleteView removes a view. Deleting the default view returns
	// ErrDefaultViewProtected, a non-retryable condition.
	DeleteView(viewID string) error

	// ApplyPatches applies a version-checked patch batch and returns the
	// updated view, or a *VersionConflictError on a stale version.
	ApplyPatches(viewID string, version int64, patches []types.Patch) (*types.View, error)
}

// StoreService adapts a types.Store to ViewService for one acting user.
type StoreService struct {
	Store types.Store
	Owner string
}

var _ ViewService = (*StoreService)(nil)

func (s *StoreService) ListViews(tableID string) ([]*types.View, error) {
	return s.Store.ListViews(s.Owner, tableID)
}

func (s *StoreService) CreateView(tableID, name string) (*types.View, error) {
	return s.Store.CreateView(s.Owner, tableID, name)
}

func (s *StoreService) DeleteView(viewID string) error {
	return s.Store.DeleteView(s.Owner, viewID)
}

func (s *StoreService) ApplyPatches(viewID string, version int64, patches []types.Patch) (*types.View, error) {
	return s.Store.ApplyViewPatches(s.Owner, viewID, version, patches)
}
