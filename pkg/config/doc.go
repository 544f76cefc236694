// Package config provides configuration management for the gstiod node.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and sensible defaults matching the
// chain's genesis parameters.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention GSTIO_SECTION_FIELD.
// For example:
//
//   - GSTIO_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - GSTIO_STORAGE_DB_PATH overrides storage.db_path
//   - GSTIO_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// The chain section can be watched for changes with Watcher, which reloads
// the file on modification and hands the validated result to a callback.
// Invalid edits are rejected and the running configuration is kept.
package config
