package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Defaults() should validate, got %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("default backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Lookup.Tier != "fixed" {
		t.Errorf("default tier = %q, want fixed", cfg.Lookup.Tier)
	}
}

func TestValidateRequiresBackendSettings(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Backend = "postgres"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "postgres_dsn") {
		t.Errorf("postgres without dsn: err = %v", err)
	}

	cfg = Defaults()
	cfg.Storage.Backend = "dynamo"
	cfg.Storage.DynamoTable = ""
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "dynamo_table") {
		t.Errorf("dynamo without table: err = %v", err)
	}

	cfg = Defaults()
	cfg.Storage.Backend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend should fail validation")
	}
}

func TestValidateEnabledSections(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "bucket") {
		t.Errorf("archive without bucket: err = %v", err)
	}

	cfg = Defaults()
	cfg.Notify.Enabled = true
	cfg.Notify.From = "reports@example.com"
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "recipient") {
		t.Errorf("notify without recipients: err = %v", err)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[storage]
backend = "postgres"
postgres_dsn = "postgres://file-dsn"

[notify]
enabled = true
from = "reports@example.com"
to = ["ops@example.com", "desk@example.com"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TRADELEDGER_STORAGE_POSTGRES_DSN", "postgres://env-dsn")
	t.Setenv("TRADELEDGER_LOOKUP_TIER", "2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	// Env wins over file.
	if cfg.Storage.PostgresDSN != "postgres://env-dsn" {
		t.Errorf("dsn = %q, want env override", cfg.Storage.PostgresDSN)
	}
	if cfg.Lookup.Tier != "2" {
		t.Errorf("tier = %q, want 2", cfg.Lookup.Tier)
	}
	// Untouched fields keep defaults.
	if cfg.Lookup.Broker != "AMP" {
		t.Errorf("broker = %q, want AMP", cfg.Lookup.Broker)
	}
	if len(cfg.Notify.To) != 2 {
		t.Errorf("recipients = %v", cfg.Notify.To)
	}
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Storage.Backend)
	}
}

func TestLoadEnvSliceOverride(t *testing.T) {
	t.Setenv("TRADELEDGER_NOTIFY_TO", "a@example.com, b@example.com")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Notify.To) != 2 || cfg.Notify.To[1] != "b@example.com" {
		t.Errorf("recipients = %v", cfg.Notify.To)
	}
}
