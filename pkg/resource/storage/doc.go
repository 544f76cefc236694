// Package storage persists the resource ledger's record sets in SQLite.
//
// The ledger itself is an in-memory single-writer structure; this package
// provides the durable copy a node reloads at startup. Save replaces the
// stored record sets atomically in one transaction, so a crash mid-save
// leaves the previous checkpoint intact.
package storage
