package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Chain.BlockInterval != DefaultBlockInterval {
		t.Errorf("expected block interval %s, got %s", DefaultBlockInterval, cfg.Chain.BlockInterval)
	}
	if cfg.Chain.MaxBlockCPUUsage != DefaultMaxBlockCPUUsage {
		t.Errorf("expected max block cpu usage %d, got %d", DefaultMaxBlockCPUUsage, cfg.Chain.MaxBlockCPUUsage)
	}
	if cfg.Chain.ContractRate != DefaultContractRate {
		t.Errorf("expected contract rate %+v, got %+v", DefaultContractRate, cfg.Chain.ContractRate)
	}
	if cfg.Chain.ExpandRate != DefaultExpandRate {
		t.Errorf("expected expand rate %+v, got %+v", DefaultExpandRate, cfg.Chain.ExpandRate)
	}
	if !cfg.History.Enabled {
		t.Error("expected history to be enabled by default")
	}
	if !cfg.Server.Enabled {
		t.Error("expected server to be enabled by default")
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics to be enabled by default")
	}
	if cfg.Snapshot.Enabled {
		t.Error("expected snapshots to be disabled by default")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration should validate: %v", err)
	}
}

func TestApplyDefaultsPreservesSetValues(t *testing.T) {
	cfg := &Config{}
	cfg.Chain.BlockInterval = time.Second
	cfg.Chain.MaxBlockCPUUsage = 999
	cfg.Server.ListenAddress = "0.0.0.0:9999"
	cfg.Telemetry.Logging.Level = "debug"

	ApplyDefaults(cfg)

	if cfg.Chain.BlockInterval != time.Second {
		t.Errorf("block interval overwritten: %s", cfg.Chain.BlockInterval)
	}
	if cfg.Chain.MaxBlockCPUUsage != 999 {
		t.Errorf("max block cpu usage overwritten: %d", cfg.Chain.MaxBlockCPUUsage)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9999" {
		t.Errorf("listen address overwritten: %s", cfg.Server.ListenAddress)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level overwritten: %s", cfg.Telemetry.Logging.Level)
	}
}

func TestApplyDefaultsIdempotent(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	first := *cfg
	ApplyDefaults(cfg)
	if first.Chain != cfg.Chain || first.Storage != cfg.Storage || first.Server != cfg.Server {
		t.Error("ApplyDefaults is not idempotent")
	}
}
