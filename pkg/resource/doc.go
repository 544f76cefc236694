// Package resource implements the resource-accounting core of a gstio node.
//
// The chain meters three congestible resources per account and per block:
// CPU time, network bandwidth, and persistent storage (RAM). Accounts hold
// weights that entitle them to a proportional share of block capacity, and
// block capacity itself is elastic: when recent blocks run below the
// configured target the virtual limit expands (allowing bursts above nominal
// capacity), and when they run above it the virtual limit contracts back
// toward the baseline.
//
// # Components
//
//   - UsageAccumulator: a fixed-window moving average over discrete ordinals
//     (block numbers or time slots), used for per-account usage and for the
//     block-level aggregates.
//   - ElasticLimitParams and the elastic limit update, which map average
//     usage onto the next virtual limit.
//   - Ledger: the record sets (per-account limits and usage, the global
//     state and config singletons, and the prepaid-resource records).
//   - Manager: the public operations called from the block-production path:
//     per-transaction charging with fair-share admission checks, per-block
//     settlement, the pending-limit commit protocol, and read accessors.
//   - Snapshot I/O: ordered serialization of all record sets for state
//     transfer.
//
// # Concurrency
//
// The Manager takes no locks. It is driven by a single logical thread of
// block execution: transactions are charged sequentially in block order and
// ProcessBlockUsage runs once after all of them. Concurrent read-only
// queries must be isolated by the host's checkpoint discipline, not by this
// package.
package resource
