// View commands: add, list, delete, select, patch.
package main

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/petrel-data/gridbase/pkg/types"
)

var (
	patchOp          string
	patchBaseVersion int64
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Manage saved views",
}

var viewAddCmd = &cobra.Command{
	Use:   "add <table> <name>",
	Short: "Create a named view",
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
		v, err := backend.CreateView(resolveActor(), t.TableID, args[1])
		if err != nil {
			return fmt.Errorf("create view: %w", err)
		}
		if flagJSON {
			return printJSON(v)
		}
		fmt.Printf("Created view %s (%s) at version %d\n", v.Name, v.ViewID, v.Version)
		return nil
	},
}

var viewListCmd = &cobra.Command{
	Use:   "list <table>",
	Short: "List a table's views",
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
		views, err := backend.ListViews(resolveActor(), t.TableID)
		if err != nil {
			return fmt.Errorf("list views: %w", err)
		}
		if flagJSON {
			return printJSON(views)
		}
		for _, v := range views {
			marker := ""
			if v.IsDefault() {
				marker = "\t(default)"
			}
			fmt.Printf("%s\tv%d\t%s%s\n", v.ViewID, v.Version, v.Name, marker)
		}
		return nil
	},
}

var viewDeleteCmd = &cobra.Command{
	Use:   "delete <table> <view>",
	Short: "Delete a view (the default view is protected)",
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
		v, err := resolveView(backend, t.TableID, args[1])
		if err != nil {
			return err
		}
		if err := backend.DeleteView(resolveActor(), v.ViewID); err != nil {
			return fmt.Errorf("delete view: %w", err)
		}
		if !flagJSON {
			fmt.Printf("Deleted view %s\n", v.Name)
		}
		return nil
	},
}

var viewSelectCmd = &cobra.Command{
	Use:   "select <table> <view>",
	Short: "Print the configuration a client renders for a view",
	Long: `Select prints the effective view configuration. Selecting the
permanent default view always shows the reset state: every column visible,
no filters, sort, or search.`,
	Args: cobra.ExactArgs(2),
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
		v, err := resolveView(backend, t.TableID, args[1])
		if err != nil {
			return err
		}

		cfg := v.Config
		if v.IsDefault() {
			cols, err := backend.ListColumns(resolveActor(), t.TableID)
			if err != nil {
				return fmt.Errorf("list columns: %w", err)
			}
			cfg = types.DefaultViewConfig(cols)
		}
		return printJSON(cfg)
	},
}

var viewPatchCmd = &cobra.Command{
	Use:   "patch <table> <view> <path> <value>",
	Short: "Apply one configuration patch to a view",
	Long: `Patch updates one path of a view's configuration (filters, sort,
columns, or search) with a JSON value, checked against the view's current
version. A concurrent edit surfaces as a version conflict; rerun to retry
against the fresh version.`,
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
		v, err := resolveView(backend, t.TableID, args[1])
		if err != nil {
			return err
		}

		var value any
		if err := json.Unmarshal([]byte(args[3]), &value); err != nil {
			value = args[3]
		}
		p := types.Patch{Op: patchOp, Path: args[2], Value: value, Timestamp: time.Now()}

		base := patchBaseVersion
		if base == 0 {
			base = v.Version
		}
		updated, err := backend.ApplyViewPatches(resolveActor(), v.ViewID, base, []types.Patch{p})
		if err != nil {
			return fmt.Errorf("apply patch: %w", err)
		}
		if flagJSON {
			return printJSON(updated)
		}
		fmt.Printf("Updated view %s to version %d\n", updated.Name, updated.Version)
		return nil
	},
}

func init() {
	viewPatchCmd.Flags().StringVar(&patchOp, "op", types.PatchOpSet, "patch operation (set, merge)")
	viewPatchCmd.Flags().Int64Var(&patchBaseVersion, "base-version", 0, "version to apply against (default: current)")

	viewCmd.AddCommand(viewAddCmd)
	viewCmd.AddCommand(viewListCmd)
	viewCmd.AddCommand(viewDeleteCmd)
	viewCmd.AddCommand(viewSelectCmd)
	viewCmd.AddCommand(viewPatchCmd)
}
