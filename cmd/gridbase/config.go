// Config loading for the gridbase CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	yaml "gopkg.in/yaml.v3"

	"github.com/petrel-data/gridbase/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyActor      = "actor"
	cfgKeyBatchSize  = "ingest.batch_size"
	cfgKeyMaxWorkers = "ingest.max_workers"
)

// configTemplate is the shape of the default config.yaml written on first
// run.
type configTemplate struct {
	Backend string `yaml:"backend"`
	DataDir string `yaml:"data_dir,omitempty"`
	Actor   string `yaml:"actor"`
	Ingest  struct {
		BatchSize  int `yaml:"batch_size"`
		MaxWorkers int `yaml:"max_workers"`
	} `yaml:"ingest"`
}

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on first
// run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}

	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyActor, types.DefaultActor)
	v.SetDefault(cfgKeyBatchSize, types.DefaultBatchSize)
	v.SetDefault(cfgKeyMaxWorkers, types.DefaultMaxWorkers)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	return v, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile writes a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}

	var tmpl configTemplate
	tmpl.Backend = types.BackendSQLite
	tmpl.Actor = types.DefaultActor
	tmpl.Ingest.BatchSize = types.DefaultBatchSize
	tmpl.Ingest.MaxWorkers = types.DefaultMaxWorkers

	out, err := yaml.Marshal(tmpl)
	if err != nil {
		return fmt.Errorf("render default config: %w", err)
	}
	header := []byte("# Gridbase CLI configuration\n")
	return os.WriteFile(path, append(header, out...), 0o644)
}
