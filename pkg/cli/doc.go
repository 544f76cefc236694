// Package cli provides shared helpers for the gstiod command line:
// output formatting, error types, and signal handling.
package cli
