// Init command: creates the config and data directories and the empty
// database.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize gridbase configuration and storage",
	Long: `Init creates the configuration directory with a default config.yaml
and attaches the storage backend once so the database schema exists.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		backend, err := attachBackend()
		if err != nil {
			return err
		}
		defer backend.Detach()

		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}

		if flagJSON {
			return printJSON(map[string]string{
				"config_dir": configDir,
				"data_dir":   dataDir,
			})
		}
		fmt.Printf("Initialized gridbase (config: %s, data: %s)\n", configDir, dataDir)
		return nil
	},
}
