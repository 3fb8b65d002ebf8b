package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADELEDGER_* environment variable overrides,
// and returns the final Config. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load. An empty path skips
// the file and uses defaults plus overrides only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADELEDGER_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Storage.Backend, "TRADELEDGER_STORAGE_BACKEND")
	setStr(&cfg.Storage.PostgresDSN, "TRADELEDGER_STORAGE_POSTGRES_DSN")
	setStr(&cfg.Storage.DynamoTable, "TRADELEDGER_STORAGE_DYNAMO_TABLE")
	setStr(&cfg.Storage.DynamoRegion, "TRADELEDGER_STORAGE_DYNAMO_REGION")

	setBool(&cfg.Archive.Enabled, "TRADELEDGER_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "TRADELEDGER_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "TRADELEDGER_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "TRADELEDGER_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "TRADELEDGER_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "TRADELEDGER_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "TRADELEDGER_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "TRADELEDGER_ARCHIVE_FORCE_PATH_STYLE")

	setBool(&cfg.Notify.Enabled, "TRADELEDGER_NOTIFY_ENABLED")
	setStr(&cfg.Notify.Region, "TRADELEDGER_NOTIFY_REGION")
	setStr(&cfg.Notify.From, "TRADELEDGER_NOTIFY_FROM")
	setStringSlice(&cfg.Notify.To, "TRADELEDGER_NOTIFY_TO")

	setStr(&cfg.Lookup.SymbolsPath, "TRADELEDGER_LOOKUP_SYMBOLS_PATH")
	setStr(&cfg.Lookup.TicksPath, "TRADELEDGER_LOOKUP_TICKS_PATH")
	setStr(&cfg.Lookup.CommissionsPath, "TRADELEDGER_LOOKUP_COMMISSIONS_PATH")
	setStr(&cfg.Lookup.Broker, "TRADELEDGER_LOOKUP_BROKER")
	setStr(&cfg.Lookup.Tier, "TRADELEDGER_LOOKUP_TIER")

	setBool(&cfg.Metrics.Enabled, "TRADELEDGER_METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "TRADELEDGER_METRICS_ADDR")

	setStr(&cfg.LogLevel, "TRADELEDGER_LOG_LEVEL")
}

// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
