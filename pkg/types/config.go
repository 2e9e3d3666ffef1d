package types

import "errors"

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string       `json:"backend" yaml:"backend"`
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	Actor   string       `json:"actor" yaml:"actor"`
	Ingest  IngestConfig `json:"ingest" yaml:"ingest"`
}

// IngestConfig tunes the bulk ingestion pipeline. Zero values select the
// defaults via the accessor methods.
type IngestConfig struct {
	BatchSize  int `json:"batch_size" yaml:"batch_size"`
	MaxWorkers int `json:"max_workers" yaml:"max_workers"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
)

// Ingestion limits and defaults.
const (
	MaxIngestCount    = 100000
	DefaultBatchSize  = 35000
	DefaultMaxWorkers = 4
)

// DefaultActor is the acting user when none is configured. All store
// operations are scoped to an owner; single-user installs run as this one.
const DefaultActor = "local"

// Config validation errors.
var (
	ErrBackendEmpty      = errors.New("backend must not be empty")
	ErrBackendUnknown    = errors.New("unknown backend")
	ErrBatchSizeInvalid  = errors.New("ingest batch size must be positive")
	ErrMaxWorkersInvalid = errors.New("ingest max workers must be positive")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Ingest.BatchSize < 0 {
		return ErrBatchSizeInvalid
	}
	if c.Ingest.MaxWorkers < 0 {
		return ErrMaxWorkersInvalid
	}
	return nil
}

// GetActor returns the configured actor or DefaultActor.
func (c Config) GetActor() string {
	if c.Actor != "" {
		return c.Actor
	}
	return DefaultActor
}

// GetBatchSize returns the configured ingestion batch size or the default.
func (ic IngestConfig) GetBatchSize() int {
	if ic.BatchSize > 0 {
		return ic.BatchSize
	}
	return DefaultBatchSize
}

// GetMaxWorkers returns the configured worker bound or the default.
func (ic IngestConfig) GetMaxWorkers() int {
	if ic.MaxWorkers > 0 {
		return ic.MaxWorkers
	}
	return DefaultMaxWorkers
}
