package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is unmarshaled over a fully-defaulted baseline, so omitted
// fields keep their default values. The result is validated before being
// returned. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Fill fields explicitly zeroed in the file.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention GSTIO_SECTION_FIELD (e.g., GSTIO_SERVER_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (defaults applied)
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format GSTIO_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Chain overrides
	envDuration("GSTIO_CHAIN_BLOCK_INTERVAL", &cfg.Chain.BlockInterval)
	envUint64("GSTIO_CHAIN_MAX_BLOCK_CPU_USAGE", &cfg.Chain.MaxBlockCPUUsage)
	envUint64("GSTIO_CHAIN_MAX_BLOCK_NET_USAGE", &cfg.Chain.MaxBlockNetUsage)
	envUint32("GSTIO_CHAIN_TARGET_BLOCK_CPU_USAGE_PCT", &cfg.Chain.TargetBlockCPUUsagePct)
	envUint32("GSTIO_CHAIN_TARGET_BLOCK_NET_USAGE_PCT", &cfg.Chain.TargetBlockNetUsagePct)
	envDuration("GSTIO_CHAIN_BLOCK_CPU_USAGE_AVERAGE_WINDOW", &cfg.Chain.BlockCPUUsageAverageWindow)
	envDuration("GSTIO_CHAIN_BLOCK_NET_USAGE_AVERAGE_WINDOW", &cfg.Chain.BlockNetUsageAverageWindow)
	envDuration("GSTIO_CHAIN_ACCOUNT_CPU_USAGE_AVERAGE_WINDOW", &cfg.Chain.AccountCPUUsageAverageWindow)
	envDuration("GSTIO_CHAIN_ACCOUNT_NET_USAGE_AVERAGE_WINDOW", &cfg.Chain.AccountNetUsageAverageWindow)
	envUint64("GSTIO_CHAIN_MAX_MULTIPLIER", &cfg.Chain.MaxMultiplier)
	envBool("GSTIO_CHAIN_WATCH", &cfg.Chain.Watch)

	// Prepaid overrides
	envUint64("GSTIO_PREPAID_FEE", &cfg.Prepaid.Fee)
	if val := os.Getenv("GSTIO_PREPAID_EXEMPT_ACCOUNTS"); val != "" {
		cfg.Prepaid.ExemptAccounts = splitAndTrim(val)
	}
	envString("GSTIO_PREPAID_BOOTSTRAP_ACCOUNT", &cfg.Prepaid.BootstrapAccount)

	// Storage overrides
	envString("GSTIO_STORAGE_DB_PATH", &cfg.Storage.DBPath)
	envDuration("GSTIO_STORAGE_BUSY_TIMEOUT", &cfg.Storage.BusyTimeout)
	envUint32("GSTIO_STORAGE_CHECKPOINT_INTERVAL", &cfg.Storage.CheckpointInterval)

	// History overrides
	envBool("GSTIO_HISTORY_ENABLED", &cfg.History.Enabled)
	envString("GSTIO_HISTORY_DB_PATH", &cfg.History.DBPath)
	envInt("GSTIO_HISTORY_RETENTION_DAYS", &cfg.History.RetentionDays)
	envString("GSTIO_HISTORY_RETENTION_SCHEDULE", &cfg.History.RetentionSchedule)

	// Snapshot overrides
	envBool("GSTIO_SNAPSHOT_ENABLED", &cfg.Snapshot.Enabled)
	envString("GSTIO_SNAPSHOT_DIRECTORY", &cfg.Snapshot.Directory)
	envString("GSTIO_SNAPSHOT_SCHEDULE", &cfg.Snapshot.Schedule)

	// Server overrides
	envBool("GSTIO_SERVER_ENABLED", &cfg.Server.Enabled)
	envString("GSTIO_SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envDuration("GSTIO_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("GSTIO_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("GSTIO_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("GSTIO_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// Telemetry overrides
	envString("GSTIO_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("GSTIO_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("GSTIO_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("GSTIO_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envUint32(key string, dst *uint32) {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 32); err == nil {
			*dst = uint32(u)
		}
	}
}

func envUint64(key string, dst *uint64) {
	if val := os.Getenv(key); val != "" {
		if u, err := strconv.ParseUint(val, 10, 64); err == nil {
			*dst = u
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
