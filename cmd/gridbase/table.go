// Table commands: add, list, delete.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage tables",
}

var tableAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a table with its default view",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := attachBackend()
		if err != nil {
			return err
		}
		defer backend.Detach()

		t, err := backend.CreateTable(resolveActor(), args[0])
		if err != nil {
			return fmt.Errorf("create table: %w", err)
		}
		if flagJSON {
			return printJSON(t)
		}
		fmt.Printf("Created table %s (%s)\n", t.Name, t.TableID)
		return nil
	},
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := attachBackend()
		if err != nil {
			return err
		}
		defer backend.Detach()

		tables, err := backend.ListTables(resolveActor())
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
		if flagJSON {
			return printJSON(tables)
		}
		for _, t := range tables {
			fmt.Printf("%s\t%s\n", t.TableID, t.Name)
		}
		return nil
	},
}

var tableDeleteCmd = &cobra.Command{
	Use:   "delete <name-or-id>",
	Short: "Delete a table and everything in it",
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
		if err := backend.DeleteTable(resolveActor(), t.TableID); err != nil {
			return fmt.Errorf("delete table: %w", err)
		}
		if !flagJSON {
			fmt.Printf("Deleted table %s\n", t.Name)
		}
		return nil
	},
}

func init() {
	tableCmd.AddCommand(tableAddCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableDeleteCmd)
}
