package config

import "time"

// Config is the root configuration structure for the gstiod node.
// It contains all configuration sections for chain resource governance,
// prepaid accounting, persistence, history, snapshots, the status API,
// and telemetry.
type Config struct {
	// Chain contains the block-level resource governance parameters:
	// block interval, capacity maxima, utilization targets, averaging
	// windows, and the elastic rate settings.
	Chain ChainConfig `yaml:"chain"`

	// Prepaid contains configuration for the prepaid resource model,
	// including the accounts exempt from it.
	Prepaid PrepaidConfig `yaml:"prepaid"`

	// Storage contains configuration for the ledger checkpoint database.
	Storage StorageConfig `yaml:"storage"`

	// History contains configuration for the block usage history recorder
	// and its retention policy.
	History HistoryConfig `yaml:"history"`

	// Snapshot contains configuration for scheduled snapshot exports.
	Snapshot SnapshotConfig `yaml:"snapshot"`

	// Server contains configuration for the read-only HTTP status API.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging
	// and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ChainConfig contains the block-level resource governance parameters.
//
// Percentages are expressed in hundredths of a percent, so 10000 means
// 100% and 1000 means 10%. Durations must be whole multiples of the
// block interval; they are converted to period counts at startup.
type ChainConfig struct {
	// BlockInterval is the duration of one block production slot.
	// Default: 500ms
	BlockInterval time.Duration `yaml:"block_interval"`

	// MaxBlockCPUUsage is the baseline CPU capacity of one block, in
	// microseconds of billed execution time.
	// Default: 200000 (200ms)
	MaxBlockCPUUsage uint64 `yaml:"max_block_cpu_usage"`

	// MaxBlockNetUsage is the baseline network capacity of one block,
	// in bytes.
	// Default: 1048576 (1MB)
	MaxBlockNetUsage uint64 `yaml:"max_block_net_usage"`

	// TargetBlockCPUUsagePct is the target average CPU utilization, in
	// hundredths of a percent of MaxBlockCPUUsage. Sustained usage above
	// the target contracts the elastic CPU limit toward the baseline.
	// Default: 1000 (10%)
	TargetBlockCPUUsagePct uint32 `yaml:"target_block_cpu_usage_pct"`

	// TargetBlockNetUsagePct is the target average network utilization,
	// in hundredths of a percent of MaxBlockNetUsage.
	// Default: 1000 (10%)
	TargetBlockNetUsagePct uint32 `yaml:"target_block_net_usage_pct"`

	// BlockCPUUsageAverageWindow is the averaging window for block-level
	// CPU utilization, used by the elastic limit. Must be a whole
	// multiple of BlockInterval.
	// Default: 60s
	BlockCPUUsageAverageWindow time.Duration `yaml:"block_cpu_usage_average_window"`

	// BlockNetUsageAverageWindow is the averaging window for block-level
	// network utilization.
	// Default: 60s
	BlockNetUsageAverageWindow time.Duration `yaml:"block_net_usage_average_window"`

	// AccountCPUUsageAverageWindow is the averaging window for per-account
	// CPU usage. Must be a whole multiple of BlockInterval.
	// Default: 24h
	AccountCPUUsageAverageWindow time.Duration `yaml:"account_cpu_usage_average_window"`

	// AccountNetUsageAverageWindow is the averaging window for per-account
	// network usage.
	// Default: 24h
	AccountNetUsageAverageWindow time.Duration `yaml:"account_net_usage_average_window"`

	// MaxMultiplier bounds how far the elastic limits may expand above
	// the baseline maxima during idle periods.
	// Default: 1000
	MaxMultiplier uint64 `yaml:"max_multiplier"`

	// ContractRate is the per-period multiplier applied to an elastic
	// limit while average usage sits above target. Must be below one.
	// Default: 99/100
	ContractRate RatioConfig `yaml:"contract_rate"`

	// ExpandRate is the per-period multiplier applied to an elastic limit
	// while average usage sits at or below target. Must be above one.
	// Default: 1000/999
	ExpandRate RatioConfig `yaml:"expand_rate"`

	// Watch enables hot reloading of this section when the configuration
	// file changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`
}

// RatioConfig is a rational multiplier expressed as numerator/denominator.
type RatioConfig struct {
	// Numerator of the ratio. Must be positive.
	Numerator uint64 `yaml:"numerator"`

	// Denominator of the ratio. Must be positive.
	Denominator uint64 `yaml:"denominator"`
}

// PrepaidConfig contains configuration for the prepaid resource model.
type PrepaidConfig struct {
	// Fee is the flat amount debited from an account's prepaid balance
	// for each verified action.
	// Default: 100
	Fee uint64 `yaml:"fee"`

	// ExemptAccounts lists accounts never charged under the prepaid
	// model, typically system accounts.
	ExemptAccounts []string `yaml:"exempt_accounts"`

	// BootstrapAccount is charged under the prepaid model even before
	// activation, so the mechanism can be exercised during chain setup.
	BootstrapAccount string `yaml:"bootstrap_account"`
}

// StorageConfig contains configuration for the ledger checkpoint database.
type StorageConfig struct {
	// DBPath is the path to the SQLite checkpoint database file.
	// Default: "data/resource.db"
	DBPath string `yaml:"db_path"`

	// BusyTimeout is how long SQLite waits for locks before failing.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how many blocks pass between ledger
	// checkpoints. Zero disables periodic checkpoints; the ledger is
	// still saved on shutdown.
	// Default: 120
	CheckpointInterval uint32 `yaml:"checkpoint_interval"`
}

// HistoryConfig contains configuration for the block usage history
// recorder.
type HistoryConfig struct {
	// Enabled controls whether per-block usage rows are recorded at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite history database file.
	// Default: "data/history.db"
	DBPath string `yaml:"db_path"`

	// RetentionDays is how long usage rows are kept before the pruning
	// job deletes them. Zero keeps rows forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// RetentionSchedule is a cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 3 AM)
	RetentionSchedule string `yaml:"retention_schedule"`
}

// SnapshotConfig contains configuration for scheduled snapshot exports.
type SnapshotConfig struct {
	// Enabled controls whether snapshots are exported on a schedule.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Directory is where snapshot files are written.
	// Default: "data/snapshots"
	Directory string `yaml:"directory"`

	// Schedule is a cron expression for snapshot exports.
	// Default: "0 */6 * * *" (every six hours)
	Schedule string `yaml:"schedule"`
}

// ServerConfig contains configuration for the read-only HTTP status API.
type ServerConfig struct {
	// Enabled controls whether the status API is served at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address and port for the API to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8888").
	// Default: "127.0.0.1:8888"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path the metrics endpoint is served on.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
