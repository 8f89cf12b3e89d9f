package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
console:
  port: 9090
  refresh_interval: 5
  on_failure: rollback

upstream:
  base_url: "http://fleet:3000"
  timeout: 3

database:
  host: db
  user: fleet
  password: secret
  database: fleet

rabbitmq:
  host: mq
  user: guest
  password: guest
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Console.Port != 9090 || cfg.Console.RefreshInterval != 5 || cfg.Console.OnFailure != "rollback" {
		t.Errorf("console = %+v", cfg.Console)
	}
	if cfg.Upstream.BaseURL != "http://fleet:3000" || cfg.Upstream.Timeout != 3 {
		t.Errorf("upstream = %+v", cfg.Upstream)
	}
	if cfg.Database.Host != "db" || cfg.Database.Port != 5432 || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults not applied: %+v", cfg.Database)
	}
	if cfg.Rabbit.Host != "mq" || cfg.Rabbit.Port != 5672 || cfg.Rabbit.VHost != "/" {
		t.Errorf("rabbit defaults not applied: %+v", cfg.Rabbit)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "console:\n  port: 8080\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Console.RefreshInterval != 15 || cfg.Console.OnFailure != "keep" {
		t.Errorf("console defaults = %+v", cfg.Console)
	}
	if cfg.Upstream.Timeout != 10 {
		t.Errorf("upstream timeout default = %d", cfg.Upstream.Timeout)
	}
}

func TestLoadRejectsUnknownFailurePolicy(t *testing.T) {
	path := writeConfig(t, "console:\n  on_failure: panic\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown on_failure value")
	}
}

func TestEnvOverridesFileValues(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "http://override:4000")
	t.Setenv("DB_PASSWORD", "from-env")

	path := writeConfig(t, `
upstream:
  base_url: "http://file:3000"

database:
  password: from-file
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Upstream.BaseURL != "http://override:4000" {
		t.Errorf("base_url = %q", cfg.Upstream.BaseURL)
	}
	if cfg.Database.Password != "from-env" {
		t.Errorf("password = %q", cfg.Database.Password)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
