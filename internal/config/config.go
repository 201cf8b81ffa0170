// Package config provides centralized configuration management for the CLI.
// Settings come from an optional YAML config file and environment variables,
// with defaults for everything except the Postgres URL. The result is
// validated once at startup and passed explicitly to every component.
package config

import "time"

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Storage  StorageConfig  `key:"storage"`
	Failures FailuresConfig `key:"failures"`
	Import   ImportConfig   `key:"import"`
	Plugins  PluginConfig   `key:"plugins"`
	Logging  LoggingConfig  `key:"logging"`
}

// StorageConfig selects and configures the record store.
type StorageConfig struct {
	// Driver is sqlite, postgres or memory (default: sqlite)
	Driver string `key:"driver" env:"INVENTORY_DB_DRIVER" default:"sqlite"`

	// Path is the SQLite database file (default: ~/.inventory/inventory.db)
	Path string `key:"path" env:"INVENTORY_DB_PATH" default:"~/.inventory/inventory.db"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `key:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns caps the Postgres pool; one run uses one connection (default: 1)
	MaxConns int `key:"max_conns" env:"DB_MAX_CONNS" default:"1"`

	// ConnectTimeout bounds opening the store (default: 10s)
	ConnectTimeout time.Duration `key:"connect_timeout" env:"INVENTORY_DB_CONNECT_TIMEOUT" default:"10s"`
}

// FailuresConfig controls failure artifacts.
type FailuresConfig struct {
	// Dir is where failed_<mode>_<timestamp> artifacts are written
	Dir string `key:"dir" env:"INVENTORY_FAILED_DIR" default:"~/.inventory/failed"`

	// Format is json or csv (default: json)
	Format string `key:"format" env:"INVENTORY_FAILED_FORMAT" default:"json"`

	// KeepResolved keeps artifacts whose entries have all been retried successfully
	KeepResolved bool `key:"keep_resolved" env:"INVENTORY_FAILED_KEEP_RESOLVED" default:"false"`

	// Retention is the default age for `failures prune` (default: 30 days)
	Retention time.Duration `key:"retention" env:"INVENTORY_FAILED_RETENTION" default:"720h"`
}

// ImportConfig holds batch settings.
type ImportConfig struct {
	// Platforms are applied to rows that carry no platform flags
	Platforms []string `key:"platforms" env:"INVENTORY_PLATFORMS"`

	// Baseline platforms whose rules every row is checked against without
	// being flagged for them (default: ebay)
	Baseline []string `key:"baseline_platforms" env:"INVENTORY_BASELINE_PLATFORMS" default:"ebay"`

	// NonInteractive disables the repair prompt even on a terminal
	NonInteractive bool `key:"non_interactive" env:"INVENTORY_NONINTERACTIVE" default:"false"`

	// MaxRepairAttempts bounds rejected partial repairs per session (default: 3)
	MaxRepairAttempts int `key:"max_repair_attempts" env:"INVENTORY_MAX_REPAIR_ATTEMPTS" default:"3"`
}

// PluginConfig controls rule plugin discovery.
type PluginConfig struct {
	// Dir is scanned for *.yaml manifests (default: ~/.inventory/plugins)
	Dir string `key:"dir" env:"INVENTORY_PLUGIN_DIR" default:"~/.inventory/plugins"`

	// Constraint is the semver range plugin versions must satisfy
	Constraint string `key:"constraint" env:"INVENTORY_PLUGIN_CONSTRAINT" default:">= 0.3.0"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: warn)
	Level string `key:"level" env:"LOG_LEVEL" default:"warn"`

	// Format is the log format: text or json (default: text)
	Format string `key:"format" env:"LOG_FORMAT" default:"text"`
}
