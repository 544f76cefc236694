package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "chain: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfigEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfigFile(t, "")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Chain.BlockInterval != DefaultBlockInterval {
		t.Errorf("expected default block interval, got %s", cfg.Chain.BlockInterval)
	}
	if !cfg.Server.Enabled {
		t.Error("expected server enabled by default")
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	path := writeConfigFile(t, `
chain:
  max_block_cpu_usage: 400000
  target_block_cpu_usage_pct: 2500
server:
  listen_address: "0.0.0.0:9090"
history:
  enabled: false
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Chain.MaxBlockCPUUsage != 400000 {
		t.Errorf("expected max_block_cpu_usage 400000, got %d", cfg.Chain.MaxBlockCPUUsage)
	}
	if cfg.Chain.TargetBlockCPUUsagePct != 2500 {
		t.Errorf("expected target 2500, got %d", cfg.Chain.TargetBlockCPUUsagePct)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected overridden listen address, got %s", cfg.Server.ListenAddress)
	}
	if cfg.History.Enabled {
		t.Error("expected history disabled when the file says so")
	}
	// Untouched fields keep their defaults.
	if cfg.Chain.MaxBlockNetUsage != DefaultMaxBlockNetUsage {
		t.Errorf("expected default max_block_net_usage, got %d", cfg.Chain.MaxBlockNetUsage)
	}
}

func TestLoadConfigInvalidValuesRejected(t *testing.T) {
	path := writeConfigFile(t, `
chain:
  block_cpu_usage_average_window: 70ms
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation failure for window that is not a multiple of the block interval")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: "127.0.0.1:7000"
`)

	t.Setenv("GSTIO_SERVER_LISTEN_ADDRESS", "127.0.0.1:7001")
	t.Setenv("GSTIO_CHAIN_MAX_BLOCK_CPU_USAGE", "300000")
	t.Setenv("GSTIO_PREPAID_EXEMPT_ACCOUNTS", "gst, gst.prepaid")
	t.Setenv("GSTIO_SERVER_READ_TIMEOUT", "45s")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.ListenAddress != "127.0.0.1:7001" {
		t.Errorf("env override not applied: %s", cfg.Server.ListenAddress)
	}
	if cfg.Chain.MaxBlockCPUUsage != 300000 {
		t.Errorf("env override not applied: %d", cfg.Chain.MaxBlockCPUUsage)
	}
	if len(cfg.Prepaid.ExemptAccounts) != 2 || cfg.Prepaid.ExemptAccounts[0] != "gst" || cfg.Prepaid.ExemptAccounts[1] != "gst.prepaid" {
		t.Errorf("exempt accounts override not applied: %v", cfg.Prepaid.ExemptAccounts)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("duration override not applied: %s", cfg.Server.ReadTimeout)
	}
}

func TestLoadConfigWithEnvOverridesInvalidResult(t *testing.T) {
	path := writeConfigFile(t, "")
	t.Setenv("GSTIO_SERVER_LISTEN_ADDRESS", "no-port-here")
	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected validation failure after env override")
	}
}
