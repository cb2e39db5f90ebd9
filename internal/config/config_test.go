package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DB_DSN", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("expected memory driver, got %q", cfg.Storage.Driver)
	}
	if cfg.Jobs.GenerateAhead != 7 || cfg.Jobs.GenerateLookback != 1 {
		t.Fatalf("unexpected generate window defaults: %+v", cfg.Jobs)
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
http:
  addr: ":9000"
  read_timeout: 2s
storage:
  driver: sqlite
  path: ./data/meds.db
schedule:
  timezone: UTC
notifier:
  default_cooldown: 90s
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("expected PORT override, got %q", cfg.HTTP.Addr)
	}
	if cfg.HTTP.ReadTimeout.Std() != 2*time.Second {
		t.Fatalf("expected 2s read timeout, got %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Notifier.DefaultCooldown.Std() != 90*time.Second {
		t.Fatalf("expected 90s cooldown, got %s", cfg.Notifier.DefaultCooldown)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Logging.Level)
	}
	loc, err := cfg.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC location, got %v err=%v", loc, err)
	}
}

func TestLoad_RejectsUnknownFieldsAndBadDriver(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "unknown.yaml")
	_ = os.WriteFile(unknown, []byte("storage:\n  drivr: sqlite\n"), 0o644)
	if _, err := Load(unknown); err == nil {
		t.Fatalf("expected error for unknown field")
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("storage:\n  driver: mongo\n"), 0o644)
	_, err := Load(bad)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate_PostgresRequiresDSN(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "postgres"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
