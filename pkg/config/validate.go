package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "chain.block_interval").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateChain(&cfg.Chain)...)
	errs = append(errs, validatePrepaid(&cfg.Prepaid)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateHistory(&cfg.History)...)
	errs = append(errs, validateSnapshot(&cfg.Snapshot)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// fullPercent is 100% in the hundredths-of-a-percent representation used
// by the utilization target fields.
const fullPercent = 10000

func validateChain(c *ChainConfig) []FieldError {
	var errs []FieldError

	if c.BlockInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "chain.block_interval",
			Message: "must be positive",
		})
		// The window checks below divide by the interval.
		return errs
	}
	if c.MaxBlockCPUUsage == 0 {
		errs = append(errs, FieldError{
			Field:   "chain.max_block_cpu_usage",
			Message: "must be positive",
		})
	}
	if c.MaxBlockNetUsage == 0 {
		errs = append(errs, FieldError{
			Field:   "chain.max_block_net_usage",
			Message: "must be positive",
		})
	}
	if c.TargetBlockCPUUsagePct == 0 || c.TargetBlockCPUUsagePct > fullPercent {
		errs = append(errs, FieldError{
			Field:   "chain.target_block_cpu_usage_pct",
			Message: fmt.Sprintf("must be between 1 and %d (hundredths of a percent)", fullPercent),
		})
	}
	if c.TargetBlockNetUsagePct == 0 || c.TargetBlockNetUsagePct > fullPercent {
		errs = append(errs, FieldError{
			Field:   "chain.target_block_net_usage_pct",
			Message: fmt.Sprintf("must be between 1 and %d (hundredths of a percent)", fullPercent),
		})
	}
	if c.MaxMultiplier == 0 {
		errs = append(errs, FieldError{
			Field:   "chain.max_multiplier",
			Message: "must be positive",
		})
	}

	errs = append(errs, validateWindow("chain.block_cpu_usage_average_window", c.BlockCPUUsageAverageWindow, c)...)
	errs = append(errs, validateWindow("chain.block_net_usage_average_window", c.BlockNetUsageAverageWindow, c)...)
	errs = append(errs, validateWindow("chain.account_cpu_usage_average_window", c.AccountCPUUsageAverageWindow, c)...)
	errs = append(errs, validateWindow("chain.account_net_usage_average_window", c.AccountNetUsageAverageWindow, c)...)

	errs = append(errs, validateRatio("chain.contract_rate", c.ContractRate, false)...)
	errs = append(errs, validateRatio("chain.expand_rate", c.ExpandRate, true)...)

	return errs
}

// validateWindow checks that an averaging window is a positive whole
// multiple of the block interval, so it converts cleanly to a period count.
func validateWindow(field string, window time.Duration, c *ChainConfig) []FieldError {
	if window <= 0 {
		return []FieldError{{Field: field, Message: "must be positive"}}
	}
	if window%c.BlockInterval != 0 {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("must be a whole multiple of the block interval (%s)", c.BlockInterval),
		}}
	}
	periods := window / c.BlockInterval
	if periods > 1<<32-1 {
		return []FieldError{{Field: field, Message: "window spans too many block intervals"}}
	}
	return nil
}

// validateRatio checks the structural validity of a rate ratio and its
// direction: expansion rates must exceed one, contraction rates must not.
func validateRatio(field string, r RatioConfig, expand bool) []FieldError {
	if r.Numerator == 0 || r.Denominator == 0 {
		return []FieldError{{Field: field, Message: "numerator and denominator must be positive"}}
	}
	if expand && r.Numerator <= r.Denominator {
		return []FieldError{{Field: field, Message: "must be greater than one"}}
	}
	if !expand && r.Numerator >= r.Denominator {
		return []FieldError{{Field: field, Message: "must be less than one"}}
	}
	return nil
}

func validatePrepaid(c *PrepaidConfig) []FieldError {
	var errs []FieldError

	seen := make(map[string]bool)
	for i, account := range c.ExemptAccounts {
		if account == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("prepaid.exempt_accounts[%d]", i),
				Message: "account name cannot be empty",
			})
			continue
		}
		if seen[account] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("prepaid.exempt_accounts[%d]", i),
				Message: fmt.Sprintf("duplicate account %q", account),
			})
		}
		seen[account] = true
	}

	return errs
}

func validateStorage(c *StorageConfig) []FieldError {
	var errs []FieldError

	if c.DBPath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.db_path",
			Message: "cannot be empty",
		})
	}
	if c.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "cannot be negative",
		})
	}

	return errs
}

func validateHistory(c *HistoryConfig) []FieldError {
	var errs []FieldError

	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		errs = append(errs, FieldError{
			Field:   "history.db_path",
			Message: "cannot be empty when history is enabled",
		})
	}
	if c.RetentionDays < 0 {
		errs = append(errs, FieldError{
			Field:   "history.retention_days",
			Message: "cannot be negative",
		})
	}
	if err := validateCronSchedule(c.RetentionSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "history.retention_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	return errs
}

func validateSnapshot(c *SnapshotConfig) []FieldError {
	var errs []FieldError

	if !c.Enabled {
		return nil
	}
	if c.Directory == "" {
		errs = append(errs, FieldError{
			Field:   "snapshot.directory",
			Message: "cannot be empty when snapshots are enabled",
		})
	}
	if err := validateCronSchedule(c.Schedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "snapshot.schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}

	return errs
}

func validateCronSchedule(schedule string) error {
	if schedule == "" {
		return fmt.Errorf("schedule cannot be empty")
	}
	_, err := cron.ParseStandard(schedule)
	return err
}

func validateServer(c *ServerConfig) []FieldError {
	var errs []FieldError

	if !c.Enabled {
		return nil
	}
	if c.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "cannot be empty when the server is enabled",
		})
	} else if _, _, err := net.SplitHostPort(c.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("must be in host:port format: %v", err),
		})
	}
	if c.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "cannot be negative",
		})
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "cannot be negative",
		})
	}
	if c.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "cannot be negative",
		})
	}

	return errs
}

func validateTelemetry(c *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be one of: debug, info, warn, error (got %q)", c.Logging.Level),
		})
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be one of: json, text (got %q)", c.Logging.Format),
		})
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		})
	}

	return errs
}
