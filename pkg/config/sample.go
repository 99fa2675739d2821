package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const sampleHeader = `# pseudonymd configuration
#
# Every value can be overridden with an environment variable using the
# PSEUDONYMD_ prefix, e.g. PSEUDONYMD_CACHE_HOST=redis.
#
# Secrets (vault.token, server.jwt_secret) are best supplied through
# the environment rather than this file.

`

// InitConfig writes a sample configuration file to the default
// location. Returns the path written.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	return path, InitConfigToPath(path, force)
}

// InitConfigToPath writes a sample configuration file to the given
// path, refusing to overwrite unless force is set.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := GetDefaultConfig()
	// Placeholders so the file round-trips through Load once filled in
	cfg.Vault.Token = "CHANGE-ME"
	cfg.Server.JWTSecret = "CHANGE-ME-TO-A-RANDOM-32-PLUS-CHAR-SECRET"
	cfg.Server.CORSOrigins = []string{"http://localhost:8000"}

	body, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	// Config holds secrets, keep it private to the owner
	if err := os.WriteFile(path, append([]byte(sampleHeader), body...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
