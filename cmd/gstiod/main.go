// Gstiod is the resource governance daemon for a GSTIO chain.
//
// It meters per-account CPU, network, and RAM consumption against staked
// weights, maintains the chain's elastic block capacity, and enforces
// the prepaid resource model. State is checkpointed to SQLite and can be
// exported and imported as portable snapshots.
//
// Usage:
//
//	# Start the daemon with default configuration
//	gstiod run
//
//	# Start with a custom configuration file
//	gstiod run --config /etc/gstio/config.yaml
//
//	# Validate a configuration file
//	gstiod validate --config config.yaml
//
//	# Export the current ledger as a snapshot
//	gstiod snapshot export --output ledger.snapshot
//
//	# Inspect a snapshot file
//	gstiod snapshot info ledger.snapshot
//
//	# Show version information
//	gstiod version
package main

func main() {
	Execute()
}
