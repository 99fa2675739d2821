package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := GetDefaultConfig()
	cfg.Vault.Token = "test-token"
	cfg.Server.JWTSecret = "test-secret-key-for-testing-only-32chars"
	return cfg
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Errorf("expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_MissingVaultToken(t *testing.T) {
	cfg := validConfig()
	cfg.Vault.Token = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for missing vault token")
	}
	if !strings.Contains(err.Error(), "Vault.Token") {
		t.Errorf("expected error to mention Vault.Token, got: %v", err)
	}
}

func TestValidate_ShortJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Server.JWTSecret = "too-short"

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for short JWT secret")
	}
}

func TestValidate_TTLBounds(t *testing.T) {
	for _, ttl := range []int{0, 25, -1} {
		cfg := validConfig()
		cfg.Limits.TTLHours = ttl
		if err := Validate(cfg); err == nil {
			t.Errorf("expected validation error for ttl_hours=%d", ttl)
		}
	}
	cfg := validConfig()
	cfg.Limits.TTLHours = 24
	if err := Validate(cfg); err != nil {
		t.Errorf("ttl_hours=24 should be valid, got: %v", err)
	}
}

func TestValidate_RemoteNERRequiresEndpoint(t *testing.T) {
	cfg := validConfig()
	cfg.NER.Mode = "remote"
	cfg.NER.Endpoint = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for remote NER without endpoint")
	}
}

func TestValidate_LogLevelNormalized(t *testing.T) {
	cfg := validConfig()
	cfg.Logging.Level = "debug"

	if err := Validate(cfg); err != nil {
		t.Fatalf("lowercase level should validate: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
logging:
  level: DEBUG
  format: json
server:
  port: 9001
  jwt_secret: test-secret-key-for-testing-only-32chars
  cors_origins:
    - http://localhost:8000
cache:
  host: redis.internal
  port: 6380
vault:
  addr: http://vault.internal:8200
  token: file-token
limits:
  ttl_hours: 2
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" || cfg.Logging.Format != "json" {
		t.Errorf("logging config not loaded: %+v", cfg.Logging)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Addr() != "redis.internal:6380" {
		t.Errorf("unexpected cache addr %q", cfg.Cache.Addr())
	}
	if cfg.Limits.TTL() != 2*time.Hour {
		t.Errorf("expected 2h TTL, got %v", cfg.Limits.TTL())
	}
	// Defaults fill the rest
	if cfg.Limits.MaxTextLength != DefaultMaxTextLength {
		t.Errorf("expected default max text length, got %d", cfg.Limits.MaxTextLength)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  jwt_secret: test-secret-key-for-testing-only-32chars
vault:
  token: file-token
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PSEUDONYMD_CACHE_HOST", "redis-from-env")
	t.Setenv("PSEUDONYMD_LIMITS_TTL_HOURS", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cache.Host != "redis-from-env" {
		t.Errorf("expected env override for cache host, got %q", cfg.Cache.Host)
	}
	if cfg.Limits.TTLHours != 3 {
		t.Errorf("expected env override for ttl, got %d", cfg.Limits.TTLHours)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestInitConfigToPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath failed: %v", err)
	}

	// Refuses to overwrite without force
	if err := InitConfigToPath(path, false); err == nil {
		t.Fatal("expected error overwriting existing config without force")
	}
	if err := InitConfigToPath(path, true); err != nil {
		t.Fatalf("force overwrite failed: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "PSEUDONYMD_") {
		t.Error("sample config should document the env prefix")
	}
}
