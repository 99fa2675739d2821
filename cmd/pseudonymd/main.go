package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/regulens/pseudonymd/internal/consent"
	"github.com/regulens/pseudonymd/internal/detect"
	"github.com/regulens/pseudonymd/internal/engine"
	"github.com/regulens/pseudonymd/internal/extract"
	"github.com/regulens/pseudonymd/internal/keyvault"
	"github.com/regulens/pseudonymd/internal/logger"
	"github.com/regulens/pseudonymd/internal/metrics"
	"github.com/regulens/pseudonymd/internal/server"
	"github.com/regulens/pseudonymd/internal/sessioncache"
	"github.com/regulens/pseudonymd/pkg/config"
)

// Build-time variables injected via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const usage = `pseudonymd - Reversible pseudonymization for sanction documents

Usage:
  pseudonymd <command> [flags]

Commands:
  init     Initialize a sample configuration file
  start    Start the pseudonymization service
  version  Show version information

Flags:
  --config string    Path to config file (default: $XDG_CONFIG_HOME/pseudonymd/config.yaml)
  --force            Force overwrite existing config file (init command only)

Examples:
  # Initialize config file
  pseudonymd init

  # Start the service with default config location
  pseudonymd start

  # Start the service with custom config
  pseudonymd start --config /etc/pseudonymd/config.yaml

  # Use environment variables to override config
  PSEUDONYMD_LOGGING_LEVEL=DEBUG pseudonymd start

Environment Variables:
  All configuration options can be overridden using environment variables.
  Format: PSEUDONYMD_<SECTION>_<KEY> (use underscores for nested keys)

  Examples:
    PSEUDONYMD_LOGGING_LEVEL=DEBUG
    PSEUDONYMD_VAULT_TOKEN=hvs....
    PSEUDONYMD_SERVER_JWT_SECRET=...
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "init":
		runInit()
	case "start":
		runStart()
	case "help", "--help", "-h":
		fmt.Print(usage)
		os.Exit(0)
	case "version", "--version", "-v":
		fmt.Printf("pseudonymd %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// runInit handles the init subcommand
func runInit() {
	initFlags := flag.NewFlagSet("init", flag.ExitOnError)
	configFile := initFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/pseudonymd/config.yaml)")
	force := initFlags.Bool("force", false, "Force overwrite existing config file")

	if err := initFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	var configPath string
	var err error

	if *configFile != "" {
		err = config.InitConfigToPath(*configFile, *force)
		configPath = *configFile
	} else {
		configPath, err = config.InitConfig(*force)
	}

	if err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set the Vault token and JWT secret (file or environment)")
	fmt.Println("  2. Start the service with: pseudonymd start")
}

// runStart handles the start subcommand
func runStart() {
	startFlags := flag.NewFlagSet("start", flag.ExitOnError)
	configFile := startFlags.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/pseudonymd/config.yaml)")

	if err := startFlags.Parse(os.Args[2:]); err != nil {
		log.Fatalf("Failed to parse flags: %v", err)
	}

	if *configFile != "" {
		if _, err := os.Stat(*configFile); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: Configuration file not found: %s\n\n", *configFile)
			fmt.Fprintf(os.Stderr, "Please create the configuration file:\n  pseudonymd init --config %s\n", *configFile)
			os.Exit(1)
		}
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Configuration loaded", "source", getConfigSource(*configFile))

	// Key service: the Transit key must exist before any binding is
	// written
	keys, err := keyvault.New(cfg.Vault)
	if err != nil {
		log.Fatalf("Failed to create key service: %v", err)
	}
	if err := keys.EnsureKey(ctx); err != nil {
		log.Fatalf("Failed to ensure encryption key: %v", err)
	}
	logger.Info("Key service ready", "addr", cfg.Vault.Addr, "key", cfg.Vault.KeyName)

	// Session cache
	cache := sessioncache.New(cfg.Cache)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Fatalf("Failed to reach session cache: %v", err)
	}
	logger.Info("Session cache ready", "addr", cfg.Cache.Addr())

	// Detection pipeline
	recognizer := buildRecognizer(cfg.NER)
	if recognizer == nil {
		logger.Warn("Statistical detection disabled; runs will be marked degraded")
	}
	pipeline := detect.NewPipeline(recognizer)

	eng := engine.New(keys, cache, pipeline, cfg.Limits)

	// Metrics
	var m *metrics.Metrics
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		metricsServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: promhttp.Handler(),
		}
		go func() {
			logger.Info("Metrics server listening", "port", cfg.Metrics.Port)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	// Extraction client
	var extractor extract.Extractor
	if cfg.Extract.Endpoint != "" {
		client := extract.NewClient(cfg.Extract.Endpoint, cfg.Extract.APIKey, cfg.Extract.Timeout)
		extractor = extract.WithRetry(client,
			cfg.Extract.RetryAttempts,
			cfg.Extract.RetryBaseDelay,
			cfg.Extract.RetryMaxDelay)
		logger.Info("Extraction service configured", "endpoint", cfg.Extract.Endpoint)
	} else {
		logger.Info("No extraction endpoint configured; /api/v1/extract disabled")
	}

	handler := &server.Handler{
		Engine:    eng,
		Gate:      consent.Gate{},
		Extractor: extractor,
		Keys:      keys,
		Cache:     cache,
		Metrics:   m,
	}
	apiServer := server.NewServer(cfg.Server, handler)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- apiServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Service is running. Press Ctrl+C to stop.", "port", cfg.Server.Port)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", "error", err)
			os.Exit(1)
		}

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server shutdown error", "error", err)
		}
	}

	logger.Info("Service stopped gracefully")
}

// buildRecognizer selects the layer-2 backend from configuration. A nil
// return disables the statistical layer.
func buildRecognizer(cfg config.NERConfig) detect.Recognizer {
	switch cfg.Mode {
	case "remote":
		return detect.NewRemoteRecognizer(cfg.Endpoint, cfg.Timeout)
	case "off":
		return nil
	default:
		return detect.NewRuleRecognizer()
	}
}

// getConfigSource returns a description of where the config was loaded from
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
