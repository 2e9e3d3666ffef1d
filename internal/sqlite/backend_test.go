// Tests for the SQLite backend lifecycle and shared test helpers.
package sqlite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/petrel-data/gridbase/pkg/types"
)

const testOwner = "tester"

// newTestBackend attaches a backend over a temp directory and registers
// cleanup.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { b.Detach() })
	return b
}

// newTestTable creates a table with the standard three test columns:
// Name (text), Email (text), Age (number).
func newTestTable(t *testing.T, b *Backend, name string) (*types.Table, []*types.Column) {
	t.Helper()
	tbl, err := b.CreateTable(testOwner, name)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	var cols []*types.Column
	for _, spec := range []struct{ name, typ string }{
		{"Name", types.ColumnTypeText},
		{"Email", types.ColumnTypeText},
		{"Age", types.ColumnTypeNumber},
	} {
		col, err := b.AddColumn(testOwner, tbl.TableID, spec.name, spec.typ)
		if err != nil {
			t.Fatalf("AddColumn(%s) failed: %v", spec.name, err)
		}
		cols = append(cols, col)
	}
	return tbl, cols
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()

	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: tmpDir,
	}

	err := b.Attach(config)
	if err != nil {
		t.Fatalf("Attach failed: %v", err)
	}

	// Verify database file created
	dbPath := filepath.Join(tmpDir, dbFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("gridbase.db not created")
	}

	// Verify double attach fails
	err = b.Attach(config)
	if err != types.ErrAlreadyAttached {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}

	b.Detach()
}

func TestBackend_AttachPersistsData(t *testing.T) {
	tmpDir := t.TempDir()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}

	b := NewBackend()
	if err := b.Attach(config); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	tbl, err := b.CreateTable(testOwner, "inventory")
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Re-attach over the same directory: data survives.
	b2 := NewBackend()
	if err := b2.Attach(config); err != nil {
		t.Fatalf("second Attach failed: %v", err)
	}
	defer b2.Detach()

	tables, err := b2.ListTables(testOwner)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 1 || tables[0].TableID != tbl.TableID {
		t.Errorf("expected table %s to survive re-attach, got %+v", tbl.TableID, tables)
	}
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	b.Attach(config)

	if err := b.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}

	// Verify idempotent
	if err := b.Detach(); err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	// Verify operations fail after detach
	if _, err := b.ListTables(testOwner); err != types.ErrStoreDetached {
		t.Errorf("expected ErrStoreDetached, got %v", err)
	}
}

func TestBackend_Attach_InvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(types.Config{Backend: "bolt"})
	if err != types.ErrBackendUnknown {
		t.Errorf("expected ErrBackendUnknown, got %v", err)
	}
}

func TestBackend_OwnerScoping(t *testing.T) {
	b := newTestBackend(t)
	tbl, _ := newTestTable(t, b, "contacts")

	// Another user cannot see or touch the table.
	tables, err := b.ListTables("intruder")
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(tables) != 0 {
		t.Errorf("expected no tables for other owner, got %d", len(tables))
	}
	if _, err := b.ListColumns("intruder", tbl.TableID); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
	if _, err := b.ListViews("intruder", tbl.TableID); err != types.ErrNotFound {
		t.Errorf("expected ErrNotFound for other owner, got %v", err)
	}
}
