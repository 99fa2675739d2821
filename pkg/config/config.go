// Package config loads and validates the pseudonymd configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PSEUDONYMD_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the pseudonymd service configuration.
//
// The service holds no durable state of its own: the session cache is a
// short-TTL Redis store and the encryption key lives in Vault. Everything
// here is connection, limit, and operational configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the HTTP API listener
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Cache configures the Redis session cache holding forward and
	// reverse bindings
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Vault configures the Transit-backed key service used to encrypt
	// reverse bindings
	Vault VaultConfig `mapstructure:"vault" yaml:"vault"`

	// NER configures the statistical person recognizer (detection layer 2)
	NER NERConfig `mapstructure:"ner" yaml:"ner"`

	// Extract configures the external document-extraction service that
	// receives pseudonymized text
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`

	// Limits bounds sessions and per-call input
	Limits LimitsConfig `mapstructure:"limits" yaml:"limits"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required" yaml:"level"`

	// Format specifies the log output format: text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Port the API listens on
	Port int `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`

	// ReadTimeout / WriteTimeout / IdleTimeout for the http.Server
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// JWTSecret signs and verifies bearer tokens on /internal endpoints.
	// Must be at least 32 characters. May be set via
	// PSEUDONYMD_SERVER_JWT_SECRET.
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32" yaml:"jwt_secret"`

	// CORSOrigins lists allowed origins for the preview frontend
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// MetricsConfig contains Prometheus metrics server configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics listener starts
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port for the metrics HTTP listener
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lte=65535" yaml:"port"`
}

// CacheConfig configures the Redis session cache.
type CacheConfig struct {
	Host     string `mapstructure:"host" validate:"required" yaml:"host"`
	Port     int    `mapstructure:"port" validate:"required,gt=0,lte=65535" yaml:"port"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0" yaml:"db"`

	// DialTimeout and OpTimeout bound cache connections and individual
	// operations. Cache round trips are sub-millisecond locally; 5 s
	// covers a network hiccup without hanging a request.
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`
	OpTimeout   time.Duration `mapstructure:"op_timeout" yaml:"op_timeout"`
}

// Addr returns host:port for the Redis client.
func (c CacheConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// VaultConfig configures the Transit key service.
type VaultConfig struct {
	// Addr is the Vault server URL
	Addr string `mapstructure:"addr" validate:"required,url" yaml:"addr"`

	// Token authenticates against Vault. May be set via
	// PSEUDONYMD_VAULT_TOKEN.
	Token string `mapstructure:"token" validate:"required" yaml:"token"`

	// KeyName is the Transit key used for reverse-binding encryption
	KeyName string `mapstructure:"key_name" validate:"required" yaml:"key_name"`

	// Timeout bounds each encrypt/decrypt round trip. Transit calls are
	// fast; 10 s absorbs a Vault leader election without stalling.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// NERConfig configures the statistical person recognizer.
type NERConfig struct {
	// Mode selects the recognizer backend:
	//   rule   - built-in rule-based tagger (default)
	//   remote - HTTP NER service (Endpoint required)
	//   off    - layer 2 disabled; results are marked degraded
	Mode string `mapstructure:"mode" validate:"required,oneof=rule remote off" yaml:"mode"`

	// Endpoint of the remote NER service (remote mode only)
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`

	// Timeout bounds each remote recognition call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ExtractConfig configures the external extraction service. Only
// pseudonymized text ever reaches this endpoint.
type ExtractConfig struct {
	// Endpoint of the extraction service. Empty disables
	// POST /api/v1/extract.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`

	// APIKey is sent as a bearer token when set. May be set via
	// PSEUDONYMD_EXTRACT_API_KEY.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Timeout bounds each extraction call
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RetryAttempts is the total number of tries on retryable failures
	RetryAttempts int `mapstructure:"retry_attempts" validate:"omitempty,gte=1,lte=10" yaml:"retry_attempts"`

	// RetryBaseDelay and RetryMaxDelay shape the exponential backoff
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay" yaml:"retry_max_delay"`
}

// LimitsConfig bounds sessions and per-call input.
type LimitsConfig struct {
	// TTLHours is the session binding TTL in hours (1-24)
	TTLHours int `mapstructure:"ttl_hours" validate:"required,gte=1,lte=24" yaml:"ttl_hours"`

	// MaxTextLength caps the per-call input size in bytes
	MaxTextLength int `mapstructure:"max_text_length" validate:"required,gt=0" yaml:"max_text_length"`

	// MaxPseudonymsPerSession caps distinct bindings per session
	MaxPseudonymsPerSession int `mapstructure:"max_pseudonyms_per_session" validate:"required,gt=0" yaml:"max_pseudonyms_per_session"`
}

// TTL returns the session binding TTL as a duration.
func (l LimitsConfig) TTL() time.Duration {
	return time.Duration(l.TTLHours) * time.Hour
}

// Load reads configuration from the given path (or the default location
// when empty), applies environment overrides and defaults, and
// validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound && configPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment binding and file search paths.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PSEUDONYMD_ prefix with underscores
	// Example: PSEUDONYMD_LOGGING_LEVEL=DEBUG, PSEUDONYMD_CACHE_HOST=redis
	v.SetEnvPrefix("PSEUDONYMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys must be known to viper for AutomaticEnv to see them even
	// without a config file
	for _, key := range allSettingKeys() {
		v.SetDefault(key, nil)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile attempts to read the config file. Returns whether a
// file was found; absence is not an error.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns the mapstructure hooks used when
// unmarshalling: duration strings ("5s") and comma-separated lists.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		stringToSliceHook(),
	)
}

// stringToSliceHook splits comma-separated strings into []string so
// PSEUDONYMD_SERVER_CORS_ORIGINS="a,b" works from the environment.
func stringToSliceHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf([]string{}) {
			return data, nil
		}
		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}

// Validate checks the configuration against the struct validation tags.
func Validate(cfg *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if ok := errors.As(err, &errs); ok && len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, fe := range errs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return err
	}

	if cfg.NER.Mode == "remote" && cfg.NER.Endpoint == "" {
		return fmt.Errorf("invalid configuration: ner.endpoint is required when ner.mode is %q", "remote")
	}

	level := strings.ToUpper(cfg.Logging.Level)
	switch level {
	case "DEBUG", "INFO", "WARN", "ERROR":
		cfg.Logging.Level = level
	default:
		return fmt.Errorf("invalid configuration: logging.level %q is not one of DEBUG, INFO, WARN, ERROR", cfg.Logging.Level)
	}

	return nil
}

// getConfigDir returns the default configuration directory,
// $XDG_CONFIG_HOME/pseudonymd or ~/.config/pseudonymd.
func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "pseudonymd")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "pseudonymd")
}

// GetDefaultConfigPath returns the default config file location.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the
// default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
