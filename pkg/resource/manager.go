package resource

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gstchain/gstio/pkg/arith"
)

// DefaultPrepaidFee is the prepaid balance debited per metered operation
// when no fee is configured.
const DefaultPrepaidFee uint64 = 100

// Options configures a Manager.
type Options struct {
	// ExemptAccounts bypass the prepaid capacity check. These are the
	// designated system accounts.
	ExemptAccounts []AccountName

	// BootstrapAccount may operate before any prepaid record exists for
	// it; every other account must acquire prepaid capacity first when
	// prepaid accounting is active.
	BootstrapAccount AccountName

	// PrepaidFee is the prepaid balance debited by VerifyPrepaidUsage.
	// Zero selects DefaultPrepaidFee.
	PrepaidFee uint64

	// Metrics receives accounting metrics. Nil disables instrumentation.
	Metrics *Metrics

	// Logger for structured logging. Nil selects slog.Default().
	Logger *slog.Logger
}

// Manager owns all public resource-accounting operations. It is driven
// synchronously by the block-production path: AddTransactionUsage per
// applied transaction, then ProcessAccountLimitUpdates and
// ProcessBlockUsage once per block.
type Manager struct {
	ledger     *Ledger
	exempt     map[AccountName]struct{}
	bootstrap  AccountName
	prepaidFee uint64
	metrics    *Metrics
	logger     *slog.Logger
}

// NewManager creates a manager over the given ledger.
func NewManager(ledger *Ledger, opts Options) *Manager {
	exempt := make(map[AccountName]struct{}, len(opts.ExemptAccounts))
	for _, a := range opts.ExemptAccounts {
		exempt[a] = struct{}{}
	}
	fee := opts.PrepaidFee
	if fee == 0 {
		fee = DefaultPrepaidFee
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ledger:     ledger,
		exempt:     exempt,
		bootstrap:  opts.BootstrapAccount,
		prepaidFee: fee,
		metrics:    opts.Metrics,
		logger:     logger.With("component", "resource.manager"),
	}
}

// Ledger returns the backing ledger, for snapshotting and persistence.
func (m *Manager) Ledger() *Ledger { return m.ledger }

// InitializeAccount creates zeroed usage and unlimited limit records for a
// new account. Duplicate initialization fails with ErrAccountExists.
func (m *Manager) InitializeAccount(account AccountName) error {
	if err := m.ledger.CreateAccount(account); err != nil {
		return fmt.Errorf("initialize account %q: %w", account, err)
	}
	return nil
}

// SetBlockParameters validates and stores new elastic limit parameters for
// both block resources. Invalid parameters are rejected without mutating
// state.
func (m *Manager) SetBlockParameters(cpuParams, netParams ElasticLimitParams) error {
	if err := cpuParams.Validate(); err != nil {
		return fmt.Errorf("cpu limit parameters: %w", err)
	}
	if err := netParams.Validate(); err != nil {
		return fmt.Errorf("net limit parameters: %w", err)
	}

	config := m.ledger.Config()
	config.CPULimitParams = cpuParams
	config.NetLimitParams = netParams

	m.logger.Info("block parameters updated",
		"cpu_max", cpuParams.Max, "cpu_target", cpuParams.Target,
		"net_max", netParams.Max, "net_target", netParams.Target)
	return nil
}

// UpdateAccountUsage advances each account's usage windows by zero usage at
// the given ordinal, so decay applies to accounts that transacted in prior
// periods even without new activity.
func (m *Manager) UpdateAccountUsage(accounts []AccountName, ordinal uint32) error {
	config := m.ledger.Config()
	for _, account := range accounts {
		usage, err := m.ledger.Usage(account)
		if err != nil {
			return fmt.Errorf("account %q: %w", account, err)
		}
		if err := usage.NetUsage.Add(0, ordinal, config.AccountNetUsageAverageWindow); err != nil {
			return fmt.Errorf("account %q net usage: %w", account, err)
		}
		if err := usage.CPUUsage.Add(0, ordinal, config.AccountCPUUsageAverageWindow); err != nil {
			return fmt.Errorf("account %q cpu usage: %w", account, err)
		}
	}
	return nil
}

// AddTransactionUsage charges a transaction's measured CPU and net costs to
// every authorizing account and to the block aggregate.
//
// For each account the usage is first folded into its moving-average
// windows, then checked against the account's weighted fair share of the
// current virtual capacity. The per-account checks run before the block
// aggregate check; the first failure aborts the call. Accounts processed
// before the failing one keep their updated usage: their consumption was
// real, and charges are not rolled back across the authorization set.
func (m *Manager) AddTransactionUsage(accounts []AccountName, cpuUsage, netUsage uint64, ordinal uint32) error {
	state := m.ledger.State()
	config := m.ledger.Config()

	for _, account := range accounts {
		usage, err := m.ledger.Usage(account)
		if err != nil {
			return fmt.Errorf("account %q: %w", account, err)
		}
		limits, err := m.ledger.EffectiveLimits(account)
		if err != nil {
			return fmt.Errorf("account %q: %w", account, err)
		}

		if err := usage.NetUsage.Add(netUsage, ordinal, config.AccountNetUsageAverageWindow); err != nil {
			return fmt.Errorf("account %q net usage: %w", account, err)
		}
		if err := usage.CPUUsage.Add(cpuUsage, ordinal, config.AccountCPUUsageAverageWindow); err != nil {
			return fmt.Errorf("account %q cpu usage: %w", account, err)
		}

		if limits.CPUWeight >= 0 && state.TotalCPUWeight > 0 {
			err := m.checkFairShare(ResourceCPU, account, &usage.CPUUsage,
				config.AccountCPUUsageAverageWindow, state.VirtualCPULimit,
				uint64(limits.CPUWeight), state.TotalCPUWeight)
			if err != nil {
				return err
			}
		}

		if limits.NetWeight >= 0 && state.TotalNetWeight > 0 {
			err := m.checkFairShare(ResourceNet, account, &usage.NetUsage,
				config.AccountNetUsageAverageWindow, state.VirtualNetLimit,
				uint64(limits.NetWeight), state.TotalNetWeight)
			if err != nil {
				return err
			}
		}
	}

	// Account for the transaction in the block and do not exceed those
	// limits either.
	var overflow bool
	state.PendingCPUUsage, overflow = arith.OAdd(state.PendingCPUUsage, cpuUsage)
	if overflow {
		return fmt.Errorf("%w: pending cpu usage overflow", ErrStateInconsistent)
	}
	state.PendingNetUsage, overflow = arith.OAdd(state.PendingNetUsage, netUsage)
	if overflow {
		return fmt.Errorf("%w: pending net usage overflow", ErrStateInconsistent)
	}

	if state.PendingCPUUsage > config.CPULimitParams.Max {
		m.metrics.RecordBlockExhausted(ResourceCPU)
		return &BlockExhaustedError{Resource: ResourceCPU, Pending: state.PendingCPUUsage, Max: config.CPULimitParams.Max}
	}
	if state.PendingNetUsage > config.NetLimitParams.Max {
		m.metrics.RecordBlockExhausted(ResourceNet)
		return &BlockExhaustedError{Resource: ResourceNet, Pending: state.PendingNetUsage, Max: config.NetLimitParams.Max}
	}
	return nil
}

// checkFairShare is the weighted fair-share admission check: the account's
// usage within the window must not exceed its weight-proportional slice of
// the virtual capacity extended over the window.
func (m *Manager) checkFairShare(res ResourceKind, account AccountName, acc *UsageAccumulator,
	windowSize uint32, virtualLimit, weight, totalWeight uint64) error {

	used, err := acc.usedInWindow(windowSize)
	if err != nil {
		return err
	}

	// virtualLimit * windowSize * weight / totalWeight via a 192-bit
	// intermediate. Saturation means a share too large to represent,
	// which can never be exceeded, so it admits.
	maxUserUse, saturated := arith.Mul2Div(virtualLimit, uint64(windowSize), weight, totalWeight)
	if !saturated && used > maxUserUse {
		m.metrics.RecordRejection(res)
		sentinel := ErrTxCPUUsageExceeded
		if res == ResourceNet {
			sentinel = ErrTxNetUsageExceeded
		}
		return newExceededError(res, account, used, maxUserUse, sentinel)
	}
	return nil
}

// AddPendingRAMUsage adjusts an account's cumulative RAM usage by a signed
// delta. Overflow above the 64-bit range and underflow below zero are
// fatal arithmetic errors and leave the usage unchanged.
//
// When prepaid accounting is active the same delta is applied to the
// account's prepaid consumption, saturating at zero instead of going
// negative: an existing balance too small to absorb a refund is simply
// cleared, by policy.
func (m *Manager) AddPendingRAMUsage(account AccountName, delta int64) error {
	if delta == 0 {
		return nil
	}

	usage, err := m.ledger.Usage(account)
	if err != nil {
		return fmt.Errorf("account %q: %w", account, err)
	}

	if delta > 0 && math.MaxUint64-usage.RAMUsage < uint64(delta) {
		return fmt.Errorf("%w: ram usage delta would overflow", ErrStateInconsistent)
	}
	if delta < 0 && usage.RAMUsage < uint64(-delta) {
		return fmt.Errorf("%w: ram usage delta would underflow", ErrStateInconsistent)
	}

	if delta > 0 {
		usage.RAMUsage += uint64(delta)
	} else {
		usage.RAMUsage -= uint64(-delta)
	}

	if m.ledger.PrepaidActivated() {
		m.applyPrepaidDelta(account, delta)
	}
	return nil
}

// applyPrepaidDelta mirrors a RAM delta into the prepaid consumption
// record, creating the record on first contact for accounts that predate
// prepaid accounting.
func (m *Manager) applyPrepaidDelta(account AccountName, delta int64) {
	p := m.ledger.Prepaid(account)
	if p == nil {
		used := uint64(0)
		if delta > 0 {
			used = uint64(delta)
		}
		m.ledger.CreatePrepaid(account, PrepaidObject{Bytes: 0, Used: used})
		return
	}
	if delta < 0 {
		p.Used = arith.SubSaturate(p.Used, uint64(-delta))
	} else {
		p.Used = arith.AddSaturate(p.Used, uint64(delta))
	}
}

// VerifyAccountRAMUsage fails when an account's RAM usage exceeds its byte
// cap, and, under prepaid accounting, when prepaid consumption exceeds
// prepaid capacity. Exempt system accounts skip the prepaid check; the
// bootstrap account alone may operate with no prepaid record.
func (m *Manager) VerifyAccountRAMUsage(account AccountName) error {
	limits, err := m.ledger.EffectiveLimits(account)
	if err != nil {
		return fmt.Errorf("account %q: %w", account, err)
	}
	usage, err := m.ledger.Usage(account)
	if err != nil {
		return fmt.Errorf("account %q: %w", account, err)
	}

	if limits.RAMBytes >= 0 && usage.RAMUsage > uint64(limits.RAMBytes) {
		m.metrics.RecordRejection(ResourceRAM)
		return newExceededError(ResourceRAM, account, usage.RAMUsage, uint64(limits.RAMBytes), ErrRAMUsageExceeded)
	}

	if !m.ledger.PrepaidActivated() {
		return nil
	}

	p := m.ledger.Prepaid(account)
	if p == nil {
		if account == m.bootstrap {
			return nil
		}
		return fmt.Errorf("account %q: %w", account, ErrPrepaidRequired)
	}
	if _, exempt := m.exempt[account]; exempt {
		return nil
	}
	if p.Bytes >= 0 && p.Used > uint64(p.Bytes) {
		m.metrics.RecordRejection(ResourcePrepaid)
		return newExceededError(ResourcePrepaid, account, p.Used, uint64(p.Bytes), ErrPrepaidUsageExceeded)
	}
	return nil
}

// SetAccountLimits stages new limits for an account. The staged values take
// effect at the next settlement boundary; until then they are visible
// through GetAccountLimits but excluded from global totals.
//
// The returned bool reports whether the RAM cap became more restrictive
// (any decrease, or going from unlimited to limited); callers use it to
// decide whether the change needs validation against current usage before
// it is allowed to commit.
func (m *Manager) SetAccountLimits(account AccountName, ramBytes, netWeight, cpuWeight int64) (bool, error) {
	pending, err := m.ledger.StagePendingLimits(account)
	if err != nil {
		return false, fmt.Errorf("account %q: %w", account, err)
	}

	decreased := false
	if ramBytes >= 0 {
		decreased = pending.RAMBytes < 0 || ramBytes < pending.RAMBytes
	}

	pending.RAMBytes = ramBytes
	pending.NetWeight = netWeight
	pending.CPUWeight = cpuWeight
	return decreased, nil
}

// GetAccountLimits returns the account's staged limits if any are pending,
// otherwise its active limits.
func (m *Manager) GetAccountLimits(account AccountName) (ramBytes, netWeight, cpuWeight int64, err error) {
	limits, err := m.ledger.EffectiveLimits(account)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("account %q: %w", account, err)
	}
	return limits.RAMBytes, limits.NetWeight, limits.CPUWeight, nil
}

// ProcessAccountLimitUpdates is the settlement pass: it commits every
// staged limit change in stable owner order, moving the old active values
// out of the global totals and the new values in, then discards the staged
// copies. This is the only place the totals change.
func (m *Manager) ProcessAccountLimitUpdates() error {
	state := m.ledger.State()
	owners := m.ledger.PendingOwners()

	for _, owner := range owners {
		entry, err := m.ledger.activeLimitsEntry(owner)
		if err != nil {
			return fmt.Errorf("account %q: %w", owner, err)
		}
		pending := entry.Pending

		if err := settleTotal(&state.TotalRAMBytes, &entry.Active.RAMBytes, pending.RAMBytes, "ram_bytes"); err != nil {
			return err
		}
		if err := settleTotal(&state.TotalCPUWeight, &entry.Active.CPUWeight, pending.CPUWeight, "cpu_weight"); err != nil {
			return err
		}
		if err := settleTotal(&state.TotalNetWeight, &entry.Active.NetWeight, pending.NetWeight, "net_weight"); err != nil {
			return err
		}

		entry.Pending = nil
	}

	if len(owners) > 0 {
		m.logger.Debug("account limit updates settled", "count", len(owners))
	}
	return nil
}

// settleTotal replaces value with pendingValue inside a running total,
// asserting the total never underflows when the old value leaves nor
// overflows when the new value enters. Unlimited (-1) values contribute
// nothing to the total.
func settleTotal(total *uint64, value *int64, pendingValue int64, which string) error {
	if *value > 0 {
		if *total < uint64(*value) {
			return fmt.Errorf("%w: underflow reverting old value of %s", ErrStateInconsistent, which)
		}
		*total -= uint64(*value)
	}
	if pendingValue > 0 {
		if math.MaxUint64-*total < uint64(pendingValue) {
			return fmt.Errorf("%w: overflow applying new value of %s", ErrStateInconsistent, which)
		}
		*total += uint64(pendingValue)
	}
	*value = pendingValue
	return nil
}

// ProcessBlockUsage folds the pending block usage into the block-level
// moving averages keyed by block number, recomputes both virtual limits,
// and resets the pending counters.
//
// It must run exactly once per produced block, after every transaction in
// the block has been charged. Calling it twice for the same block number
// double-counts; that contract belongs to the caller and is not enforced
// here.
func (m *Manager) ProcessBlockUsage(blockNum uint32) error {
	state := m.ledger.State()
	config := m.ledger.Config()

	if err := state.AverageBlockCPUUsage.Add(state.PendingCPUUsage, blockNum, config.CPULimitParams.Periods); err != nil {
		return fmt.Errorf("block cpu usage: %w", err)
	}
	state.VirtualCPULimit = updateElasticLimit(state.VirtualCPULimit, state.AverageBlockCPUUsage.Average(), config.CPULimitParams)
	state.PendingCPUUsage = 0

	if err := state.AverageBlockNetUsage.Add(state.PendingNetUsage, blockNum, config.NetLimitParams.Periods); err != nil {
		return fmt.Errorf("block net usage: %w", err)
	}
	state.VirtualNetLimit = updateElasticLimit(state.VirtualNetLimit, state.AverageBlockNetUsage.Average(), config.NetLimitParams)
	state.PendingNetUsage = 0

	m.metrics.ObserveBlock(state)
	m.logger.Debug("block usage processed", "block_num", blockNum,
		"virtual_cpu_limit", state.VirtualCPULimit, "virtual_net_limit", state.VirtualNetLimit)
	return nil
}

// GetVirtualBlockCPULimit returns the current elastic CPU ceiling.
func (m *Manager) GetVirtualBlockCPULimit() uint64 {
	return m.ledger.State().VirtualCPULimit
}

// GetVirtualBlockNetLimit returns the current elastic net ceiling.
func (m *Manager) GetVirtualBlockNetLimit() uint64 {
	return m.ledger.State().VirtualNetLimit
}

// GetBlockCPULimit returns the CPU budget remaining in the block under
// construction, against the baseline (non-elastic) maximum.
func (m *Manager) GetBlockCPULimit() uint64 {
	return arith.SubSaturate(m.ledger.Config().CPULimitParams.Max, m.ledger.State().PendingCPUUsage)
}

// GetBlockNetLimit returns the net budget remaining in the block under
// construction, against the baseline (non-elastic) maximum.
func (m *Manager) GetBlockNetLimit() uint64 {
	return arith.SubSaturate(m.ledger.Config().NetLimitParams.Max, m.ledger.State().PendingNetUsage)
}

// GetAccountCPULimit returns the CPU quantity the account can still use in
// the current window, or -1 if the account is unweighted.
func (m *Manager) GetAccountCPULimit(account AccountName, elastic bool) (int64, error) {
	arl, err := m.GetAccountCPULimitEx(account, elastic)
	if err != nil {
		return 0, err
	}
	return arl.Available, nil
}

// GetAccountCPULimitEx returns the {used, available, max} CPU triple for
// the account's current window. When elastic is true the virtual limit
// sets the capacity; otherwise the baseline maximum does.
func (m *Manager) GetAccountCPULimitEx(account AccountName, elastic bool) (AccountResourceLimit, error) {
	state := m.ledger.State()
	config := m.ledger.Config()

	capacity := config.CPULimitParams.Max
	if elastic {
		capacity = state.VirtualCPULimit
	}
	return m.accountWindowLimit(account, ResourceCPU, capacity, config.AccountCPUUsageAverageWindow, state.TotalCPUWeight)
}

// GetAccountNetLimit returns the net quantity the account can still use in
// the current window, or -1 if the account is unweighted.
func (m *Manager) GetAccountNetLimit(account AccountName, elastic bool) (int64, error) {
	arl, err := m.GetAccountNetLimitEx(account, elastic)
	if err != nil {
		return 0, err
	}
	return arl.Available, nil
}

// GetAccountNetLimitEx returns the {used, available, max} net triple for
// the account's current window.
func (m *Manager) GetAccountNetLimitEx(account AccountName, elastic bool) (AccountResourceLimit, error) {
	state := m.ledger.State()
	config := m.ledger.Config()

	capacity := config.NetLimitParams.Max
	if elastic {
		capacity = state.VirtualNetLimit
	}
	return m.accountWindowLimit(account, ResourceNet, capacity, config.AccountNetUsageAverageWindow, state.TotalNetWeight)
}

// accountWindowLimit computes one resource's window triple for an account.
func (m *Manager) accountWindowLimit(account AccountName, res ResourceKind,
	capacity uint64, windowSize uint32, totalWeight uint64) (AccountResourceLimit, error) {

	usage, err := m.ledger.Usage(account)
	if err != nil {
		return AccountResourceLimit{}, fmt.Errorf("account %q: %w", account, err)
	}
	limits, err := m.ledger.EffectiveLimits(account)
	if err != nil {
		return AccountResourceLimit{}, fmt.Errorf("account %q: %w", account, err)
	}

	weight := limits.CPUWeight
	acc := &usage.CPUUsage
	if res == ResourceNet {
		weight = limits.NetWeight
		acc = &usage.NetUsage
	}

	if weight < 0 || totalWeight == 0 {
		return UnlimitedResourceLimit(), nil
	}

	maxUserUse, saturated := arith.Mul2Div(capacity, uint64(windowSize), uint64(weight), totalWeight)
	if saturated || maxUserUse > math.MaxInt64 {
		return AccountResourceLimit{}, fmt.Errorf("%w: %s window limit is not representable", ErrStateInconsistent, res)
	}

	used, err := acc.usedInWindowCeil(windowSize)
	if err != nil {
		return AccountResourceLimit{}, err
	}
	if used > math.MaxInt64 {
		return AccountResourceLimit{}, fmt.Errorf("%w: %s window usage is not representable", ErrStateInconsistent, res)
	}

	arl := AccountResourceLimit{
		Used: int64(used),
		Max:  int64(maxUserUse),
	}
	if maxUserUse > used {
		arl.Available = int64(maxUserUse - used)
	}
	return arl, nil
}

// GetAccountRAMUsage returns the account's cumulative RAM consumption in
// bytes.
func (m *Manager) GetAccountRAMUsage(account AccountName) (int64, error) {
	usage, err := m.ledger.Usage(account)
	if err != nil {
		return 0, fmt.Errorf("account %q: %w", account, err)
	}
	if usage.RAMUsage > math.MaxInt64 {
		return 0, fmt.Errorf("%w: ram usage is not representable", ErrStateInconsistent)
	}
	return int64(usage.RAMUsage), nil
}
