// Root command for the gridbase CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/petrel-data/gridbase/internal/paths"
	"github.com/petrel-data/gridbase/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagActor     string
	flagJSON      bool
)

// Config values loaded from config.yaml by PersistentPreRunE so all
// subcommands can use them.
var (
	configDataDir    string
	configActor      string
	configBatchSize  int
	configMaxWorkers int
)

var rootCmd = &cobra.Command{
	Use:          "gridbase",
	Short:        "Gridbase is a multi-user tabular data store",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = cfg.GetString(cfgKeyDataDir)
		configActor = cfg.GetString(cfgKeyActor)
		configBatchSize = cfg.GetInt(cfgKeyBatchSize)
		configMaxWorkers = cfg.GetInt(cfgKeyMaxWorkers)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.gridbase)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.gridbase-db)")
	rootCmd.PersistentFlags().StringVar(&flagActor, "actor", "", "acting user id (default: config actor or \"local\")")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(columnCmd)
	rootCmd.AddCommand(rowCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(pageCmd)
}

// resolveDataDir returns the data directory path by precedence:
// --data-dir flag > config.yaml data_dir > GRIDBASE_DATA_DIR env > default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory by precedence:
// --config-dir flag > GRIDBASE_CONFIG_DIR env > default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveActor returns the acting user id: --actor flag > config.yaml actor
// > "local".
func resolveActor() string {
	if flagActor != "" {
		return flagActor
	}
	if configActor != "" {
		return configActor
	}
	return types.DefaultActor
}
