// Ingest command: bulk synthetic row generation through the streaming
// pipeline.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrel-data/gridbase/internal/ingest"
	"github.com/petrel-data/gridbase/pkg/types"
)

var (
	ingestCount     int
	ingestBatchSize int
	ingestWorkers   int
	ingestVerbose   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <table>",
	Short: "Bulk-add synthetic rows to a table",
	Long: fmt.Sprintf(`Ingest generates synthetic rows matching the table's columns and
streams them in batches through concurrent workers. Count must be between
0 and %d. Batches commit independently: a failed batch is reported and
retried by rerunning with the remaining count, while committed batches
stand.`, types.MaxIngestCount),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := attachBackend()
		if err != nil {
			return err
		}
		defer backend.Detach()

		t, err := resolveTable(backend, args[0])
		if err != nil {
			return err
		}

		level := slog.LevelWarn
		if ingestVerbose {
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

		cfg := types.IngestConfig{BatchSize: ingestBatchSize, MaxWorkers: ingestWorkers}
		if cfg.BatchSize == 0 {
			cfg.BatchSize = configBatchSize
		}
		if cfg.MaxWorkers == 0 {
			cfg.MaxWorkers = configMaxWorkers
		}

		pipeline := ingest.NewPipeline(backend, resolveActor(), cfg, logger)

		start := time.Now()
		res, err := pipeline.Ingest(cmd.Context(), t.TableID, ingestCount)
		if err != nil {
			// Partial success still reports what landed.
			if res.RowsAdded > 0 {
				fmt.Fprintf(os.Stderr, "ingest: %d of %d rows committed\n", res.RowsAdded, ingestCount)
			}
			return fmt.Errorf("ingest: %w", err)
		}

		if flagJSON {
			return printJSON(map[string]any{
				"table":      t.TableID,
				"rows_added": res.RowsAdded,
				"elapsed":    time.Since(start).String(),
			})
		}
		fmt.Printf("Added %d rows to %s in %s\n", res.RowsAdded, t.Name, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	ingestCmd.Flags().IntVar(&ingestCount, "count", 0, fmt.Sprintf("number of rows to add (0..%d)", types.MaxIngestCount))
	ingestCmd.Flags().IntVar(&ingestBatchSize, "batch-size", 0, "rows per batch (default: config)")
	ingestCmd.Flags().IntVar(&ingestWorkers, "workers", 0, "max concurrent batch writers (default: config)")
	ingestCmd.Flags().BoolVar(&ingestVerbose, "verbose", false, "log per-batch progress")
	ingestCmd.MarkFlagRequired("count")
}
