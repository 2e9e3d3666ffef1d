// Row commands: add, get, set-cell.
package main

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var rowCmd = &cobra.Command{
	Use:   "row",
	Short: "Manage rows and cells",
}

var rowAddCmd = &cobra.Command{
	Use:   "add <table>",
	Short: "Create one empty row",
	Args:  cobra.ExactArgs(1),
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
		r, err := backend.CreateRow(resolveActor(), t.TableID)
		if err != nil {
			return fmt.Errorf("create row: %w", err)
		}
		if flagJSON {
			return printJSON(r)
		}
		fmt.Printf("Created row %s\n", r.RowID)
		return nil
	},
}

var rowGetCmd = &cobra.Command{
	Use:   "get <table> <row-id>",
	Short: "Print one row with its cached values",
	Args:  cobra.ExactArgs(2),
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
		r, err := backend.GetRow(resolveActor(), t.TableID, args[1])
		if err != nil {
			return fmt.Errorf("get row: %w", err)
		}
		return printJSON(r)
	},
}

var rowSetCellCmd = &cobra.Command{
	Use:   "set-cell <table> <row-id> <column> <value>",
	Short: "Write one cell value",
	Long: `Set-cell writes a value into one cell. The value is parsed as JSON
first (so numbers and null work), falling back to a plain string. The
column may be given by name or id.`,
	Args: cobra.ExactArgs(4),
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

		columnID := args[2]
		cols, err := backend.ListColumns(resolveActor(), t.TableID)
		if err != nil {
			return fmt.Errorf("list columns: %w", err)
		}
		for _, c := range cols {
			if c.Name == args[2] {
				columnID = c.ColumnID
				break
			}
		}

		var value any
		if err := json.Unmarshal([]byte(args[3]), &value); err != nil {
			value = args[3]
		}

		cell, err := backend.UpsertCell(resolveActor(), t.TableID, args[1], columnID, value)
		if err != nil {
			return fmt.Errorf("set cell: %w", err)
		}
		if flagJSON {
			return printJSON(cell)
		}
		fmt.Printf("Set cell %s\n", cell.CellID)
		return nil
	},
}

func init() {
	rowCmd.AddCommand(rowAddCmd)
	rowCmd.AddCommand(rowGetCmd)
	rowCmd.AddCommand(rowSetCellCmd)
}
