// Package integration provides end-to-end tests over the SQLite backend:
// bulk ingestion with concurrent pagination, and multi-client view
// synchronization.
package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrel-data/gridbase/internal/sqlite"
	"github.com/petrel-data/gridbase/pkg/types"
)

const testOwner = "integration"

// newAttachedBackend creates a backend attached to an isolated temp
// directory. Each test gets its own store.
func newAttachedBackend(t *testing.T) (*sqlite.Backend, string) {
	t.Helper()
	dataDir := t.TempDir()

	backend := sqlite.NewBackend()
	err := backend.Attach(types.Config{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
	})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Detach() })
	return backend, dataDir
}

// newPeopleTable creates a table with the Name/Email/Age column set used
// across the suite.
func newPeopleTable(t *testing.T, backend *sqlite.Backend, name string) *types.Table {
	t.Helper()
	tbl, err := backend.CreateTable(testOwner, name)
	require.NoError(t, err)

	for _, spec := range []struct{ name, typ string }{
		{"Name", types.ColumnTypeText},
		{"Email", types.ColumnTypeText},
		{"Age", types.ColumnTypeNumber},
	} {
		_, err := backend.AddColumn(testOwner, tbl.TableID, spec.name, spec.typ)
		require.NoError(t, err)
	}
	return tbl
}
