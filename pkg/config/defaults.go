package config

import "time"

// Default values for configuration fields.
const (
	// Chain defaults
	DefaultBlockInterval                = 500 * time.Millisecond
	DefaultMaxBlockCPUUsage             = uint64(200_000) // 200ms of billed CPU
	DefaultMaxBlockNetUsage             = uint64(1048576) // 1MB
	DefaultTargetBlockCPUUsagePct       = uint32(1000)    // 10%
	DefaultTargetBlockNetUsagePct       = uint32(1000)    // 10%
	DefaultBlockCPUUsageAverageWindow   = 60 * time.Second
	DefaultBlockNetUsageAverageWindow   = 60 * time.Second
	DefaultAccountCPUUsageAverageWindow = 24 * time.Hour
	DefaultAccountNetUsageAverageWindow = 24 * time.Hour
	DefaultMaxMultiplier                = uint64(1000)

	// Prepaid defaults
	DefaultPrepaidFee = uint64(100)

	// Storage defaults
	DefaultStorageDBPath      = "data/resource.db"
	DefaultStorageBusyTimeout = 5 * time.Second
	DefaultCheckpointInterval = uint32(120)

	// History defaults
	DefaultHistoryEnabled           = true
	DefaultHistoryDBPath            = "data/history.db"
	DefaultHistoryRetentionDays     = 90
	DefaultHistoryRetentionSchedule = "0 3 * * *"

	// Snapshot defaults
	DefaultSnapshotEnabled   = false
	DefaultSnapshotDirectory = "data/snapshots"
	DefaultSnapshotSchedule  = "0 */6 * * *"

	// Server defaults
	DefaultServerEnabled   = true
	DefaultListenAddress   = "127.0.0.1:8888"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// Default elastic rate ratios. Contraction runs faster than expansion so a
// congested chain backs off quickly and recovers capacity gradually.
var (
	DefaultContractRate = RatioConfig{Numerator: 99, Denominator: 100}
	DefaultExpandRate   = RatioConfig{Numerator: 1000, Denominator: 999}
)

// DefaultConfig returns a configuration populated entirely with default
// values. Loading unmarshals the YAML file over this baseline, so fields
// absent from the file keep their defaults, including booleans that
// default to true.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.History.Enabled = DefaultHistoryEnabled
	cfg.Server.Enabled = DefaultServerEnabled
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values. Boolean fields
// keep their zero value; use DefaultConfig for a fully-populated baseline.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Chain defaults
	if cfg.Chain.BlockInterval == 0 {
		cfg.Chain.BlockInterval = DefaultBlockInterval
	}
	if cfg.Chain.MaxBlockCPUUsage == 0 {
		cfg.Chain.MaxBlockCPUUsage = DefaultMaxBlockCPUUsage
	}
	if cfg.Chain.MaxBlockNetUsage == 0 {
		cfg.Chain.MaxBlockNetUsage = DefaultMaxBlockNetUsage
	}
	if cfg.Chain.TargetBlockCPUUsagePct == 0 {
		cfg.Chain.TargetBlockCPUUsagePct = DefaultTargetBlockCPUUsagePct
	}
	if cfg.Chain.TargetBlockNetUsagePct == 0 {
		cfg.Chain.TargetBlockNetUsagePct = DefaultTargetBlockNetUsagePct
	}
	if cfg.Chain.BlockCPUUsageAverageWindow == 0 {
		cfg.Chain.BlockCPUUsageAverageWindow = DefaultBlockCPUUsageAverageWindow
	}
	if cfg.Chain.BlockNetUsageAverageWindow == 0 {
		cfg.Chain.BlockNetUsageAverageWindow = DefaultBlockNetUsageAverageWindow
	}
	if cfg.Chain.AccountCPUUsageAverageWindow == 0 {
		cfg.Chain.AccountCPUUsageAverageWindow = DefaultAccountCPUUsageAverageWindow
	}
	if cfg.Chain.AccountNetUsageAverageWindow == 0 {
		cfg.Chain.AccountNetUsageAverageWindow = DefaultAccountNetUsageAverageWindow
	}
	if cfg.Chain.MaxMultiplier == 0 {
		cfg.Chain.MaxMultiplier = DefaultMaxMultiplier
	}
	if cfg.Chain.ContractRate == (RatioConfig{}) {
		cfg.Chain.ContractRate = DefaultContractRate
	}
	if cfg.Chain.ExpandRate == (RatioConfig{}) {
		cfg.Chain.ExpandRate = DefaultExpandRate
	}

	// Prepaid defaults
	if cfg.Prepaid.Fee == 0 {
		cfg.Prepaid.Fee = DefaultPrepaidFee
	}

	// Storage defaults
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = DefaultStorageDBPath
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultStorageBusyTimeout
	}
	if cfg.Storage.CheckpointInterval == 0 {
		cfg.Storage.CheckpointInterval = DefaultCheckpointInterval
	}

	// History defaults
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = DefaultHistoryDBPath
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = DefaultHistoryRetentionDays
	}
	if cfg.History.RetentionSchedule == "" {
		cfg.History.RetentionSchedule = DefaultHistoryRetentionSchedule
	}

	// Snapshot defaults
	if cfg.Snapshot.Directory == "" {
		cfg.Snapshot.Directory = DefaultSnapshotDirectory
	}
	if cfg.Snapshot.Schedule == "" {
		cfg.Snapshot.Schedule = DefaultSnapshotSchedule
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
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

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
