package config

import "time"

// Default values applied when the config file or environment leaves a
// setting unset.
const (
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stdout"

	DefaultServerPort      = 8001
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultMetricsPort = 9091

	DefaultCacheHost        = "localhost"
	DefaultCachePort        = 6379
	DefaultCacheDialTimeout = 5 * time.Second
	DefaultCacheOpTimeout   = 5 * time.Second

	DefaultVaultAddr    = "http://localhost:8200"
	DefaultVaultKeyName = "pseudonym-encryption-key"
	DefaultVaultTimeout = 10 * time.Second

	DefaultNERMode    = "rule"
	DefaultNERTimeout = 15 * time.Second

	DefaultExtractTimeout        = 120 * time.Second
	DefaultExtractRetryAttempts  = 5
	DefaultExtractRetryBaseDelay = 2 * time.Second
	DefaultExtractRetryMaxDelay  = 30 * time.Second

	DefaultTTLHours                = 1
	DefaultMaxTextLength           = 100_000
	DefaultMaxPseudonymsPerSession = 1000
)

// GetDefaultConfig returns a fully populated default configuration.
// The Vault token and JWT secret have no defaults and must be supplied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}

	if cfg.Cache.Host == "" {
		cfg.Cache.Host = DefaultCacheHost
	}
	if cfg.Cache.Port == 0 {
		cfg.Cache.Port = DefaultCachePort
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = DefaultCacheDialTimeout
	}
	if cfg.Cache.OpTimeout == 0 {
		cfg.Cache.OpTimeout = DefaultCacheOpTimeout
	}

	if cfg.Vault.Addr == "" {
		cfg.Vault.Addr = DefaultVaultAddr
	}
	if cfg.Vault.KeyName == "" {
		cfg.Vault.KeyName = DefaultVaultKeyName
	}
	if cfg.Vault.Timeout == 0 {
		cfg.Vault.Timeout = DefaultVaultTimeout
	}

	if cfg.NER.Mode == "" {
		cfg.NER.Mode = DefaultNERMode
	}
	if cfg.NER.Timeout == 0 {
		cfg.NER.Timeout = DefaultNERTimeout
	}

	if cfg.Extract.Timeout == 0 {
		cfg.Extract.Timeout = DefaultExtractTimeout
	}
	if cfg.Extract.RetryAttempts == 0 {
		cfg.Extract.RetryAttempts = DefaultExtractRetryAttempts
	}
	if cfg.Extract.RetryBaseDelay == 0 {
		cfg.Extract.RetryBaseDelay = DefaultExtractRetryBaseDelay
	}
	if cfg.Extract.RetryMaxDelay == 0 {
		cfg.Extract.RetryMaxDelay = DefaultExtractRetryMaxDelay
	}

	if cfg.Limits.TTLHours == 0 {
		cfg.Limits.TTLHours = DefaultTTLHours
	}
	if cfg.Limits.MaxTextLength == 0 {
		cfg.Limits.MaxTextLength = DefaultMaxTextLength
	}
	if cfg.Limits.MaxPseudonymsPerSession == 0 {
		cfg.Limits.MaxPseudonymsPerSession = DefaultMaxPseudonymsPerSession
	}
}

// allSettingKeys lists every viper key so environment variables are
// picked up without a config file.
func allSettingKeys() []string {
	return []string{
		"logging.level", "logging.format", "logging.output",
		"server.port", "server.read_timeout", "server.write_timeout",
		"server.idle_timeout", "server.shutdown_timeout",
		"server.jwt_secret", "server.cors_origins",
		"metrics.enabled", "metrics.port",
		"cache.host", "cache.port", "cache.password", "cache.db",
		"cache.dial_timeout", "cache.op_timeout",
		"vault.addr", "vault.token", "vault.key_name", "vault.timeout",
		"ner.mode", "ner.endpoint", "ner.timeout",
		"extract.endpoint", "extract.api_key", "extract.timeout",
		"extract.retry_attempts", "extract.retry_base_delay",
		"extract.retry_max_delay",
		"limits.ttl_hours", "limits.max_text_length",
		"limits.max_pseudonyms_per_session",
	}
}
