package resource

import (
	"sort"
)

// LimitsObject is an account's resource caps and weights. RAMBytes is an
// absolute byte cap; NetWeight and CPUWeight are proportional claims on
// shared block capacity. Unlimited (-1) disables enforcement of a field.
type LimitsObject struct {
	RAMBytes  int64 `json:"ram_bytes" yaml:"ram_bytes"`
	NetWeight int64 `json:"net_weight" yaml:"net_weight"`
	CPUWeight int64 `json:"cpu_weight" yaml:"cpu_weight"`
}

// UnlimitedLimits is the zero-history default for a new account: no caps,
// no weights.
func UnlimitedLimits() LimitsObject {
	return LimitsObject{RAMBytes: Unlimited, NetWeight: Unlimited, CPUWeight: Unlimited}
}

// limitsEntry pairs an account's active limits with an optional staged
// pending copy. The pending copy exists only between SetAccountLimits and
// the next settlement pass; global totals always reflect active values.
type limitsEntry struct {
	Active  LimitsObject
	Pending *LimitsObject
}

// UsageObject is an account's metered consumption: cumulative RAM bytes
// plus windowed net and CPU usage.
type UsageObject struct {
	RAMUsage uint64           `json:"ram_usage" yaml:"ram_usage"`
	NetUsage UsageAccumulator `json:"net_usage" yaml:"net_usage"`
	CPUUsage UsageAccumulator `json:"cpu_usage" yaml:"cpu_usage"`
}

// PrepaidObject tracks the alternative prepaid-resource balance for an
// account: acquired capacity and consumed amount. Records are created on
// demand the first time an account touches prepaid accounting.
type PrepaidObject struct {
	Bytes int64  `json:"bytes" yaml:"bytes"`
	Used  uint64 `json:"used" yaml:"used"`
}

// StateObject is the global accounting state singleton.
//
// The totals equal the sum of all active (non-pending) account weights and
// byte caps at all times outside the settlement pass; settlement is the
// only place they change.
type StateObject struct {
	TotalRAMBytes  uint64 `json:"total_ram_bytes" yaml:"total_ram_bytes"`
	TotalNetWeight uint64 `json:"total_net_weight" yaml:"total_net_weight"`
	TotalCPUWeight uint64 `json:"total_cpu_weight" yaml:"total_cpu_weight"`

	// Virtual limits stay clamped to [max, max*max_multiplier].
	VirtualCPULimit uint64 `json:"virtual_cpu_limit" yaml:"virtual_cpu_limit"`
	VirtualNetLimit uint64 `json:"virtual_net_limit" yaml:"virtual_net_limit"`

	// Usage charged in the block under construction, not yet folded into
	// the block averages.
	PendingCPUUsage uint64 `json:"pending_cpu_usage" yaml:"pending_cpu_usage"`
	PendingNetUsage uint64 `json:"pending_net_usage" yaml:"pending_net_usage"`

	AverageBlockCPUUsage UsageAccumulator `json:"average_block_cpu_usage" yaml:"average_block_cpu_usage"`
	AverageBlockNetUsage UsageAccumulator `json:"average_block_net_usage" yaml:"average_block_net_usage"`
}

// ConfigObject is the global accounting configuration singleton.
type ConfigObject struct {
	CPULimitParams ElasticLimitParams `json:"cpu_limit_parameters" yaml:"cpu_limit_parameters"`
	NetLimitParams ElasticLimitParams `json:"net_limit_parameters" yaml:"net_limit_parameters"`

	// Per-account moving-average window sizes, in aggregation periods.
	AccountCPUUsageAverageWindow uint32 `json:"account_cpu_usage_average_window" yaml:"account_cpu_usage_average_window"`
	AccountNetUsageAverageWindow uint32 `json:"account_net_usage_average_window" yaml:"account_net_usage_average_window"`
}

// Ledger holds every record set the Manager operates on. It is an
// in-memory single-writer store; durable persistence and state transfer go
// through pkg/resource/storage and the snapshot functions.
type Ledger struct {
	limits  map[AccountName]*limitsEntry
	usage   map[AccountName]*UsageObject
	prepaid map[AccountName]*PrepaidObject

	// prepaidActive gates whether prepaid accounting is enforced at all.
	prepaidActive bool

	state  StateObject
	config ConfigObject
}

// NewLedger creates a ledger with the given configuration. The chain
// starts out treated as congested: virtual limits begin at the baseline
// maxima and must earn their way up.
func NewLedger(config ConfigObject) *Ledger {
	return &Ledger{
		limits:  make(map[AccountName]*limitsEntry),
		usage:   make(map[AccountName]*UsageObject),
		prepaid: make(map[AccountName]*PrepaidObject),
		config:  config,
		state: StateObject{
			VirtualCPULimit: config.CPULimitParams.Max,
			VirtualNetLimit: config.NetLimitParams.Max,
		},
	}
}

// State returns the mutable global state singleton.
func (l *Ledger) State() *StateObject { return &l.state }

// Config returns the mutable global config singleton.
func (l *Ledger) Config() *ConfigObject { return &l.config }

// CreateAccount creates zeroed usage and unlimited limits records for a
// new account. It fails with ErrAccountExists if either record is already
// present.
func (l *Ledger) CreateAccount(account AccountName) error {
	if _, ok := l.limits[account]; ok {
		return ErrAccountExists
	}
	if _, ok := l.usage[account]; ok {
		return ErrAccountExists
	}
	l.limits[account] = &limitsEntry{Active: UnlimitedLimits()}
	l.usage[account] = &UsageObject{}
	return nil
}

// Usage returns the account's usage record.
func (l *Ledger) Usage(account AccountName) (*UsageObject, error) {
	u, ok := l.usage[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return u, nil
}

// EffectiveLimits returns the account's pending limits if any are staged,
// otherwise its active limits.
func (l *Ledger) EffectiveLimits(account AccountName) (LimitsObject, error) {
	e, ok := l.limits[account]
	if !ok {
		return LimitsObject{}, ErrAccountNotFound
	}
	if e.Pending != nil {
		return *e.Pending, nil
	}
	return e.Active, nil
}

// StagePendingLimits stages limits for an account, creating the pending
// copy from the active values if none exists yet, then returns it for
// mutation.
func (l *Ledger) StagePendingLimits(account AccountName) (*LimitsObject, error) {
	e, ok := l.limits[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if e.Pending == nil {
		staged := e.Active
		e.Pending = &staged
	}
	return e.Pending, nil
}

// PendingOwners returns the owners with staged limit changes in stable
// (lexicographic) order. Settlement relies on this order being
// deterministic across nodes.
func (l *Ledger) PendingOwners() []AccountName {
	var owners []AccountName
	for name, e := range l.limits {
		if e.Pending != nil {
			owners = append(owners, name)
		}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners
}

// activeLimitsEntry returns the account's full limits entry.
func (l *Ledger) activeLimitsEntry(account AccountName) (*limitsEntry, error) {
	e, ok := l.limits[account]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return e, nil
}

// Prepaid returns the account's prepaid record, or nil if none exists.
func (l *Ledger) Prepaid(account AccountName) *PrepaidObject {
	return l.prepaid[account]
}

// CreatePrepaid creates a prepaid record for an account and returns it.
func (l *Ledger) CreatePrepaid(account AccountName, obj PrepaidObject) *PrepaidObject {
	p := obj
	l.prepaid[account] = &p
	return &p
}

// PrepaidActivated reports whether prepaid accounting is enforced.
func (l *Ledger) PrepaidActivated() bool { return l.prepaidActive }

// SetPrepaidActivation toggles the global prepaid enforcement flag.
func (l *Ledger) SetPrepaidActivation(active bool) { l.prepaidActive = active }

// AccountNames returns all accounts with resource records in stable order.
func (l *Ledger) AccountNames() []AccountName {
	names := make([]AccountName, 0, len(l.limits))
	for name := range l.limits {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// PrepaidOwners returns all accounts with prepaid records in stable order.
func (l *Ledger) PrepaidOwners() []AccountName {
	names := make([]AccountName, 0, len(l.prepaid))
	for name := range l.prepaid {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// LimitsRow is an account limits record with its owner key, used by
// snapshot and persistence code walking the record sets.
type LimitsRow struct {
	Owner   AccountName   `json:"owner"`
	Active  LimitsObject  `json:"active"`
	Pending *LimitsObject `json:"pending,omitempty"`
}

// UsageRow is an account usage record with its owner key.
type UsageRow struct {
	Owner AccountName `json:"owner"`
	UsageObject
}

// PrepaidRow is a prepaid record with its owner key.
type PrepaidRow struct {
	Owner AccountName `json:"owner"`
	PrepaidObject
}

// LimitsRows returns every limits record in primary-key order.
func (l *Ledger) LimitsRows() []LimitsRow {
	names := l.AccountNames()
	rows := make([]LimitsRow, 0, len(names))
	for _, name := range names {
		e := l.limits[name]
		rows = append(rows, LimitsRow{Owner: name, Active: e.Active, Pending: e.Pending})
	}
	return rows
}

// UsageRows returns every usage record in primary-key order.
func (l *Ledger) UsageRows() []UsageRow {
	names := l.AccountNames()
	rows := make([]UsageRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, UsageRow{Owner: name, UsageObject: *l.usage[name]})
	}
	return rows
}

// PrepaidRows returns every prepaid record in primary-key order.
func (l *Ledger) PrepaidRows() []PrepaidRow {
	owners := l.PrepaidOwners()
	rows := make([]PrepaidRow, 0, len(owners))
	for _, owner := range owners {
		rows = append(rows, PrepaidRow{Owner: owner, PrepaidObject: *l.prepaid[owner]})
	}
	return rows
}

// RestoreLimitsRow inserts a limits record during reconstruction,
// overwriting any existing record for the owner.
func (l *Ledger) RestoreLimitsRow(row LimitsRow) {
	l.limits[row.Owner] = &limitsEntry{Active: row.Active, Pending: row.Pending}
}

// RestoreUsageRow inserts a usage record during reconstruction.
func (l *Ledger) RestoreUsageRow(row UsageRow) {
	u := row.UsageObject
	l.usage[row.Owner] = &u
}

// RestorePrepaidRow inserts a prepaid record during reconstruction.
func (l *Ledger) RestorePrepaidRow(row PrepaidRow) {
	p := row.PrepaidObject
	l.prepaid[row.Owner] = &p
}

// EmptyLedger creates a ledger with no records and zero-valued singletons,
// for snapshot and persistence reconstruction.
func EmptyLedger() *Ledger {
	return &Ledger{
		limits:  make(map[AccountName]*limitsEntry),
		usage:   make(map[AccountName]*UsageObject),
		prepaid: make(map[AccountName]*PrepaidObject),
	}
}
