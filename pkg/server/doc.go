// Package server provides the read-only HTTP status API for the node.
//
// The API exposes the chain's current resource state: block-level limits
// and elastic ceilings, per-account limits and usage, prepaid balances,
// and recent block usage history. It also hosts the health and metrics
// endpoints. All endpoints are read-only; resource state is only mutated
// by the chain's block production loop.
package server
