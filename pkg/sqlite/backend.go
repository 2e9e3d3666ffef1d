// Package sqlite provides the public API for the SQLite gridbase backend.
// It exposes the factory function while keeping implementation details
// internal.
package sqlite

import (
	"github.com/petrel-data/gridbase/internal/sqlite"
	"github.com/petrel-data/gridbase/pkg/types"
)

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend()
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".gridbase-db",
//	})
//	defer backend.Detach()
func NewBackend() types.Store {
	return sqlite.NewBackend()
}
