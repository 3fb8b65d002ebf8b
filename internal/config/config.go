// Package config defines the configuration for the trade ledger pipeline
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TRADELEDGER_* environment
// variables.
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Archive  ArchiveConfig  `toml:"archive"`
	Notify   NotifyConfig   `toml:"notify"`
	Lookup   LookupConfig   `toml:"lookup"`
	Metrics  MetricsConfig  `toml:"metrics"`
	LogLevel string         `toml:"log_level"`
}

// StorageConfig selects and parameterizes the execution store backend.
type StorageConfig struct {
	// Backend is one of "memory", "postgres", "dynamo".
	Backend string `toml:"backend"`

	// PostgresDSN is the pgx connection string, required for the postgres
	// backend.
	PostgresDSN string `toml:"postgres_dsn"`

	// DynamoTable and DynamoRegion parameterize the dynamo backend.
	DynamoTable  string `toml:"dynamo_table"`
	DynamoRegion string `toml:"dynamo_region"`
}

// ArchiveConfig holds the S3-compatible object store settings for batch
// archival. When Enabled is false no archiver is wired.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds the SES batch-summary email settings. When Enabled is
// false no notifier is wired.
type NotifyConfig struct {
	Enabled bool     `toml:"enabled"`
	Region  string   `toml:"region"`
	From    string   `toml:"from"`
	To      []string `toml:"to"`
}

// LookupConfig points at the reference-data tables and selects the
// commission schedule.
type LookupConfig struct {
	SymbolsPath     string `toml:"symbols_path"`
	TicksPath       string `toml:"ticks_path"`
	CommissionsPath string `toml:"commissions_path"`

	// Broker names the commission schedule to read rates from.
	Broker string `toml:"broker"`

	// Tier selects the volume tier within the schedule.
	Tier string `toml:"tier"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Defaults returns the built-in configuration. Values here are what a bare
// local run uses before any TOML file or environment override is applied.
func Defaults() Config {
	return Config{
		Storage: StorageConfig{
			Backend:      "memory",
			DynamoTable:  "TradingExecutions",
			DynamoRegion: "us-east-1",
		},
		Archive: ArchiveConfig{
			Region: "us-east-1",
			UseSSL: true,
		},
		Notify: NotifyConfig{
			Region: "us-east-1",
		},
		Lookup: LookupConfig{
			SymbolsPath:     "reference/symbols.json",
			TicksPath:       "reference/tick_values.json",
			CommissionsPath: "reference/commissions.json",
			Broker:          "AMP",
			Tier:            "fixed",
		},
		Metrics: MetricsConfig{
			Addr: ":9091",
		},
		LogLevel: "info",
	}
}

var validBackends = map[string]bool{
	"memory":   true,
	"postgres": true,
	"dynamo":   true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for internal consistency. All problems
// are reported at once.
func (c *Config) Validate() error {
	var errs []string

	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Sprintf("storage: unknown backend %q (valid: memory, postgres, dynamo)", c.Storage.Backend))
	}
	switch strings.ToLower(c.Storage.Backend) {
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage: postgres_dsn is required for the postgres backend")
		}
	case "dynamo":
		if c.Storage.DynamoTable == "" {
			errs = append(errs, "storage: dynamo_table is required for the dynamo backend")
		}
		if c.Storage.DynamoRegion == "" {
			errs = append(errs, "storage: dynamo_region is required for the dynamo backend")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket is required when archival is enabled")
		}
		if c.Archive.Region == "" {
			errs = append(errs, "archive: region is required when archival is enabled")
		}
	}

	if c.Notify.Enabled {
		if c.Notify.From == "" {
			errs = append(errs, "notify: from address is required when notification is enabled")
		}
		if len(c.Notify.To) == 0 {
			errs = append(errs, "notify: at least one recipient is required when notification is enabled")
		}
	}

	if c.Lookup.TicksPath == "" {
		errs = append(errs, "lookup: ticks_path must not be empty")
	}
	if c.Lookup.CommissionsPath == "" {
		errs = append(errs, "lookup: commissions_path must not be empty")
	}
	if c.Lookup.Tier == "" {
		errs = append(errs, "lookup: tier must not be empty")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics: addr is required when metrics are enabled")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
