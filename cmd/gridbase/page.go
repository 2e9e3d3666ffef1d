// Page command: keyset-paginated row reads.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	pageCursor string
	pageLimit  int
)

var pageCmd = &cobra.Command{
	Use:   "page <table>",
	Short: "Fetch one page of rows",
	Long: `Page reads rows in stable (creation time, id) order. The first call
returns an opaque cursor when more rows exist; pass it back with --cursor
to continue. Rows added between calls appear in later pages without
repeating earlier ones. A malformed cursor restarts from the first page.`,
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
		page, err := backend.FetchRowPage(resolveActor(), t.TableID, pageCursor, pageLimit)
		if err != nil {
			return fmt.Errorf("fetch page: %w", err)
		}

		if flagJSON {
			return printJSON(page)
		}
		for _, r := range page.Rows {
			fmt.Printf("%s\t%s\n", r.RowID, r.Search)
		}
		fmt.Printf("-- %d of %d rows", len(page.Rows), page.TotalCount)
		if page.HasMore {
			fmt.Printf(", next: --cursor %s", page.NextCursor)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	pageCmd.Flags().StringVar(&pageCursor, "cursor", "", "resume cursor from a previous page")
	pageCmd.Flags().IntVar(&pageLimit, "limit", 0, "page size (0: first page default, then remainder)")
}
