package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return DefaultConfig()
}

func TestValidateDefaultConfig(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected default configuration to be valid: %v", err)
	}
}

func TestValidateChain(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero block interval",
			mutate:  func(c *Config) { c.Chain.BlockInterval = 0 },
			wantErr: "chain.block_interval",
		},
		{
			name:    "zero max block cpu",
			mutate:  func(c *Config) { c.Chain.MaxBlockCPUUsage = 0 },
			wantErr: "chain.max_block_cpu_usage",
		},
		{
			name:    "zero max block net",
			mutate:  func(c *Config) { c.Chain.MaxBlockNetUsage = 0 },
			wantErr: "chain.max_block_net_usage",
		},
		{
			name:    "target above 100 percent",
			mutate:  func(c *Config) { c.Chain.TargetBlockCPUUsagePct = 10001 },
			wantErr: "chain.target_block_cpu_usage_pct",
		},
		{
			name:    "zero net target",
			mutate:  func(c *Config) { c.Chain.TargetBlockNetUsagePct = 0 },
			wantErr: "chain.target_block_net_usage_pct",
		},
		{
			name:    "window not multiple of interval",
			mutate:  func(c *Config) { c.Chain.BlockCPUUsageAverageWindow = 750 * time.Millisecond },
			wantErr: "chain.block_cpu_usage_average_window",
		},
		{
			name:    "negative account window",
			mutate:  func(c *Config) { c.Chain.AccountNetUsageAverageWindow = -time.Second },
			wantErr: "chain.account_net_usage_average_window",
		},
		{
			name:    "zero max multiplier",
			mutate:  func(c *Config) { c.Chain.MaxMultiplier = 0 },
			wantErr: "chain.max_multiplier",
		},
		{
			name:    "contract rate above one",
			mutate:  func(c *Config) { c.Chain.ContractRate = RatioConfig{Numerator: 101, Denominator: 100} },
			wantErr: "chain.contract_rate",
		},
		{
			name:    "expand rate below one",
			mutate:  func(c *Config) { c.Chain.ExpandRate = RatioConfig{Numerator: 999, Denominator: 1000} },
			wantErr: "chain.expand_rate",
		},
		{
			name:    "zero denominator",
			mutate:  func(c *Config) { c.Chain.ExpandRate = RatioConfig{Numerator: 1000, Denominator: 0} },
			wantErr: "chain.expand_rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidatePrepaid(t *testing.T) {
	cfg := validConfig()
	cfg.Prepaid.ExemptAccounts = []string{"gst", "gst.prepaid", "gst"}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for duplicate exempt account")
	}
	if !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate account error, got: %v", err)
	}

	cfg = validConfig()
	cfg.Prepaid.ExemptAccounts = []string{""}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for empty exempt account")
	}
}

func TestValidateDisabledSectionsSkipped(t *testing.T) {
	cfg := validConfig()
	cfg.History.Enabled = false
	cfg.History.DBPath = ""
	cfg.Server.Enabled = false
	cfg.Server.ListenAddress = "not-an-address"

	if err := Validate(cfg); err != nil {
		t.Errorf("disabled sections should not be validated: %v", err)
	}
}

func TestValidateHistorySchedule(t *testing.T) {
	cfg := validConfig()
	cfg.History.RetentionSchedule = "not a cron expression"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for bad cron expression")
	}
	if !strings.Contains(err.Error(), "history.retention_schedule") {
		t.Errorf("expected schedule error, got: %v", err)
	}
}

func TestValidateServerAddress(t *testing.T) {
	cfg := validConfig()
	cfg.Server.ListenAddress = "missing-port"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for bad listen address")
	}
	if !strings.Contains(err.Error(), "server.listen_address") {
		t.Errorf("expected listen address error, got: %v", err)
	}
}

func TestValidateTelemetry(t *testing.T) {
	cfg := validConfig()
	cfg.Telemetry.Logging.Level = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for bad logging level")
	}

	cfg = validConfig()
	cfg.Telemetry.Logging.Format = "xml"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for bad logging format")
	}

	cfg = validConfig()
	cfg.Telemetry.Metrics.Path = "metrics"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation error for metrics path without leading slash")
	}
}

func TestValidationErrorAggregates(t *testing.T) {
	cfg := validConfig()
	cfg.Chain.MaxBlockCPUUsage = 0
	cfg.Chain.MaxBlockNetUsage = 0
	cfg.Storage.DBPath = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	verr, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(verr.Errors), verr)
	}
}
