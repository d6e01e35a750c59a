package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sunsync/sunsync-hass/internal/app"
	"github.com/sunsync/sunsync-hass/internal/config"
	"github.com/sunsync/sunsync-hass/internal/connection"
	"github.com/sunsync/sunsync-hass/internal/hass"
	"github.com/sunsync/sunsync-hass/internal/inverter"
	"github.com/sunsync/sunsync-hass/internal/statesync"
)

// version is injected at build time via ldflags
var version = "dev"

func main() {
	cfg, diagnoseMode := parseFlags()
	logger := setupLogger(cfg.Verbose)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	// Diagnose path ---------------------------------------------------------------
	if diagnoseMode {
		runDiagnoseMode(cfg)
		return
	}

	if cfg.InverterURL == "" {
		logger.Fatal("Inverter URL is required (set -inverter-url or INVERTER_URL)")
	}

	logger.WithFields(logrus.Fields{
		"version":       version,
		"device_id":     cfg.DeviceID,
		"auth_mode":     authModeName(cfg),
		"sync_interval": cfg.GetSyncInterval(),
	}).Info("Starting SunSync-HASS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	// Core clients ---------------------------------------------------------------
	settings := connection.NewSettings(cfg)
	haClient := hass.NewClient(settings, cfg.GetAPITimeout(), logger)
	resolver := connection.NewResolver(settings, haClient, logger)
	verifier := statesync.NewVerifier(haClient, settings, logger)
	syncer := statesync.NewSynchronizer(haClient, verifier, logger)
	invClient := inverter.NewClient(cfg.InverterURL, logger)

	// Run application ------------------------------------------------------------
	app.Run(ctx, cfg, resolver, invClient, syncer, logger)

	logger.Info("SunSync-HASS stopped")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func parseFlags() (*config.Config, bool) {
	cfg := config.GetDefaultConfig()

	// A YAML config file (SUNSYNC_CONFIG) seeds the defaults; env vars and
	// flags override it.
	if path := os.Getenv("SUNSYNC_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config file: %v\n", err)
			os.Exit(1)
		}
	}

	showVersion := flag.Bool("version", false, "Show version and exit")
	diagnose := flag.Bool("diagnose", false, "Dump resolved connection state and exit")

	flag.StringVar(&cfg.SupervisorToken, "supervisor-token", getEnv("SUPERVISOR_TOKEN", cfg.SupervisorToken), "Supervisor token (selects supervisor auth mode)")
	flag.StringVar(&cfg.Token, "ha-token", getEnv("HA_TOKEN", cfg.Token), "Long-lived access token")
	flag.StringVar(&cfg.Host, "ha-ip", getEnv("HA_IP", cfg.Host), "Home Assistant host or IP")
	flag.StringVar(&cfg.Port, "ha-port", getEnv("HA_PORT", cfg.Port), "Home Assistant port")
	flag.StringVar(&cfg.Scheme, "connect-type", getEnv("HTTP_CONNECT_TYPE", cfg.Scheme), "Connection scheme (http or https)")
	flag.StringVar(&cfg.OverrideURL, "base-url-override", getEnv("API_BASE_URL_OVERRIDE", cfg.OverrideURL), "Explicit API base URL override")
	flag.StringVar(&cfg.DeviceID, "device-id", getEnv("DEVICE_ID", cfg.DeviceID), "Device identifier")
	flag.StringVar(&cfg.InverterURL, "inverter-url", getEnv("INVERTER_URL", cfg.InverterURL), "Inverter monitoring endpoint URL")
	flag.BoolVar(&cfg.Verbose, "verbose", boolish(getEnv("ENABLE_VERBOSE_LOG", "")) || cfg.Verbose, "Verbose logging")

	syncIntervalStr := flag.String("sync-interval", getEnv("SYNC_INTERVAL", ""), "Sync interval (e.g. 30s)")

	flag.Parse()

	if *showVersion {
		fmt.Printf("sunsync-hass %s\n", version)
		os.Exit(0)
	}

	if *syncIntervalStr != "" {
		if d, err := time.ParseDuration(*syncIntervalStr); err == nil && d > 0 {
			cfg.SyncSeconds = int(d / time.Second)
		}
	}

	return cfg, *diagnose
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// boolish interprets the bool-like strings accepted in env vars
func boolish(v string) bool {
	switch v {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func authModeName(cfg *config.Config) string {
	if cfg.HasSupervisor() {
		return "supervisor"
	}
	return "long_lived_token"
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

func runDiagnoseMode(cfg *config.Config) {
	logger := setupLogger(true)

	settings := connection.NewSettings(cfg)
	haClient := hass.NewClient(settings, cfg.GetAPITimeout(), logger)
	resolver := connection.NewResolver(settings, haClient, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := resolver.EnsureConnectivity(ctx); err != nil {
		logger.WithError(err).Warn("Connectivity could not be established")
	}
	statesync.NewReporter(settings, logger).Report()
	os.Exit(0)
}
