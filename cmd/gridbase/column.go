// Column commands: add, list.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrel-data/gridbase/pkg/types"
)

var columnType string

var columnCmd = &cobra.Command{
	Use:   "column",
	Short: "Manage table columns",
}

var columnAddCmd = &cobra.Command{
	Use:   "add <table> <name>",
	Short: "Add a column to a table",
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
		col, err := backend.AddColumn(resolveActor(), t.TableID, args[1], columnType)
		if err != nil {
			return fmt.Errorf("add column: %w", err)
		}
		if flagJSON {
			return printJSON(col)
		}
		fmt.Printf("Added column %s (%s) to %s\n", col.Name, col.Type, t.Name)
		return nil
	},
}

var columnListCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "List a table's columns",
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
		cols, err := backend.ListColumns(resolveActor(), t.TableID)
		if err != nil {
			return fmt.Errorf("list columns: %w", err)
		}
		if flagJSON {
			return printJSON(cols)
		}
		for _, c := range cols {
			fmt.Printf("%d\t%s\t%s\t%s\n", c.Ordinal, c.ColumnID, c.Name, c.Type)
		}
		return nil
	},
}

func init() {
	columnAddCmd.Flags().StringVar(&columnType, "type", types.ColumnTypeText, "column type (text, number)")

	columnCmd.AddCommand(columnAddCmd)
	columnCmd.AddCommand(columnListCmd)
}
