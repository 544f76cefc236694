package resource

import (
	"errors"
	"fmt"
)

// AccountName identifies an account on the chain.
type AccountName string

// ResourceKind names one of the metered resources in errors and metrics.
type ResourceKind string

const (
	// ResourceCPU is execution time, measured in microseconds.
	ResourceCPU ResourceKind = "cpu"

	// ResourceNet is network bandwidth, measured in bytes.
	ResourceNet ResourceKind = "net"

	// ResourceRAM is persistent storage, measured in bytes.
	ResourceRAM ResourceKind = "ram"

	// ResourcePrepaid is the prepaid storage capacity acquired separately
	// from the weight-based system.
	ResourcePrepaid ResourceKind = "prepaid"
)

// Unlimited is the sentinel for caps and weights that are not enforced.
const Unlimited int64 = -1

// AccountResourceLimit reports an account's position within the current
// usage window for one resource. All three fields are -1 when the account
// has no finite weight or the network has zero total weight for the
// resource.
type AccountResourceLimit struct {
	// Used is the quantity consumed in the current window.
	Used int64 `json:"used"`

	// Available is the quantity still available in the current window.
	Available int64 `json:"available"`

	// Max is the per-window maximum under current congestion.
	Max int64 `json:"max"`
}

// UnlimitedResourceLimit is returned for unweighted accounts.
func UnlimitedResourceLimit() AccountResourceLimit {
	return AccountResourceLimit{Used: -1, Available: -1, Max: -1}
}

// Error sentinels for the failure classes of the accounting core.
var (
	// ErrAccountExists is returned when initializing an account that
	// already has resource records.
	ErrAccountExists = errors.New("account resource records already exist")

	// ErrAccountNotFound is returned when an operation references an
	// account with no resource records.
	ErrAccountNotFound = errors.New("account resource records not found")

	// ErrInvalidLimitParams is returned when elastic limit parameters fail
	// validation. Invalid configurations are rejected, never defaulted.
	ErrInvalidLimitParams = errors.New("invalid elastic limit parameters")

	// ErrTxCPUUsageExceeded is returned when an authorizing account's CPU
	// usage exceeds its fair share of the current window.
	ErrTxCPUUsageExceeded = errors.New("transaction cpu usage exceeded")

	// ErrTxNetUsageExceeded is returned when an authorizing account's net
	// usage exceeds its fair share of the current window.
	ErrTxNetUsageExceeded = errors.New("transaction net usage exceeded")

	// ErrBlockResourceExhausted is returned when pending block usage would
	// exceed the configured per-block maximum.
	ErrBlockResourceExhausted = errors.New("block resource exhausted")

	// ErrRAMUsageExceeded is returned when an account's RAM usage exceeds
	// its byte cap.
	ErrRAMUsageExceeded = errors.New("ram usage exceeded")

	// ErrPrepaidUsageExceeded is returned when prepaid consumption exceeds
	// the acquired prepaid capacity.
	ErrPrepaidUsageExceeded = errors.New("prepaid capacity exceeded")

	// ErrPrepaidRequired is returned when the prepaid accounting mode is
	// active and the account has no prepaid record at all. The account
	// must acquire prepaid capacity before the operation can proceed.
	ErrPrepaidRequired = errors.New("prepaid capacity must be acquired first")

	// ErrStateInconsistent indicates an overflow or underflow in the
	// accounting arithmetic. It is a programming or data-corruption
	// defect, not a user error, and aborts the failing operation.
	ErrStateInconsistent = errors.New("resource accounting state inconsistent")

	// ErrOrdinalReversed is returned when a usage window is advanced to an
	// ordinal older than the last one it was updated for.
	ErrOrdinalReversed = errors.New("usage ordinal older than previous ordinal")
)

// ExceededError reports a per-account resource-exhaustion failure with the
// quantities the caller needs to surface to the transaction submitter.
type ExceededError struct {
	Resource ResourceKind
	Account  AccountName
	Used     uint64
	Max      uint64

	err error
}

func newExceededError(res ResourceKind, account AccountName, used, max uint64, sentinel error) *ExceededError {
	return &ExceededError{Resource: res, Account: account, Used: used, Max: max, err: sentinel}
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("account %q has insufficient %s resources: used %d of %d in window",
		e.Account, e.Resource, e.Used, e.Max)
}

// Unwrap returns the matching sentinel (ErrTxCPUUsageExceeded,
// ErrTxNetUsageExceeded, ErrRAMUsageExceeded or ErrPrepaidUsageExceeded).
func (e *ExceededError) Unwrap() error {
	return e.err
}

// BlockExhaustedError reports that a block ran out of aggregate CPU or net
// capacity while charging a transaction.
type BlockExhaustedError struct {
	Resource ResourceKind
	Pending  uint64
	Max      uint64
}

func (e *BlockExhaustedError) Error() string {
	return fmt.Sprintf("block has insufficient %s resources: pending %d exceeds max %d",
		e.Resource, e.Pending, e.Max)
}

func (e *BlockExhaustedError) Unwrap() error {
	return ErrBlockResourceExhausted
}
