// Shared helpers for gridbase CLI commands.
package main

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/petrel-data/gridbase/internal/sqlite"
	"github.com/petrel-data/gridbase/pkg/types"
)

// attachBackend resolves the data directory, creates a SQLite backend, and
// attaches it. The caller must defer backend.Detach().
func attachBackend() (*sqlite.Backend, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend: types.BackendSQLite,
		DataDir: dataDir,
		Actor:   resolveActor(),
		Ingest: types.IngestConfig{
			BatchSize:  configBatchSize,
			MaxWorkers: configMaxWorkers,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend := sqlite.NewBackend()
	if err := backend.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attach backend: %w", err)
	}
	return backend, nil
}

// resolveTable finds a table by name or id for the acting user.
func resolveTable(backend *sqlite.Backend, ref string) (*types.Table, error) {
	tables, err := backend.ListTables(resolveActor())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	for _, t := range tables {
		if t.Name == ref || t.TableID == ref {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %q: %w", ref, types.ErrNotFound)
}

// resolveView finds a view by name or id within a table.
func resolveView(backend *sqlite.Backend, tableID, ref string) (*types.View, error) {
	views, err := backend.ListViews(resolveActor(), tableID)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	for _, v := range views {
		if v.Name == ref || v.ViewID == ref {
			return v, nil
		}
	}
	return nil, fmt.Errorf("view %q: %w", ref, types.ErrNotFound)
}

// printJSON renders v as indented JSON on stdout.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
