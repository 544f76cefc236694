package resource

import (
	"fmt"

	"github.com/gstchain/gstio/pkg/arith"
)

// Prepaid accounting is an alternative, separately metered scheme for
// persistent storage: instead of claiming a weighted share of pooled
// capacity, an account buys a fixed prepaid allowance and consumes it.
// The scheme coexists with weight-based accounting behind a global
// activation flag; while inactive, every prepaid operation other than
// staging balances is a no-op.

// SetPrepaidActivation toggles whether prepaid accounting is enforced.
func (m *Manager) SetPrepaidActivation(active bool) {
	m.ledger.SetPrepaidActivation(active)
	m.logger.Info("prepaid accounting activation changed", "active", active)
}

// PrepaidActivated reports whether prepaid accounting is enforced.
func (m *Manager) PrepaidActivated() bool {
	return m.ledger.PrepaidActivated()
}

// SetPrepaidLimits stages an account's prepaid capacity, creating the
// record on first purchase. Reducing capacity below what the account has
// already consumed is rejected. The returned bool reports whether the
// capacity became more restrictive.
func (m *Manager) SetPrepaidLimits(account AccountName, bytes int64) (bool, error) {
	p := m.ledger.Prepaid(account)
	if p == nil {
		m.ledger.CreatePrepaid(account, PrepaidObject{Bytes: bytes})
		return false, nil
	}

	if p.Bytes > bytes && (bytes < 0 || uint64(bytes) < p.Used) {
		return false, newExceededError(ResourcePrepaid, account, p.Used, uint64(p.Bytes), ErrPrepaidUsageExceeded)
	}

	decreased := bytes >= 0 && (p.Bytes < 0 || bytes < p.Bytes)
	p.Bytes = bytes
	return decreased, nil
}

// GetPrepaidBalance returns the account's remaining prepaid capacity:
// acquired bytes minus consumed bytes, floored at zero. Accounts with no
// prepaid record have a zero balance.
func (m *Manager) GetPrepaidBalance(account AccountName) int64 {
	p := m.ledger.Prepaid(account)
	if p == nil {
		return 0
	}
	if p.Bytes < 0 {
		return 0
	}
	remaining := arith.SubSaturate(uint64(p.Bytes), p.Used)
	return int64(remaining)
}

// VerifyPrepaidUsage charges the per-operation prepaid fee against the
// account's balance. The account must hold a prepaid record; the balance
// must cover the fee. Unlimited (-1) capacity records are never charged.
func (m *Manager) VerifyPrepaidUsage(account AccountName) error {
	p := m.ledger.Prepaid(account)
	if p == nil {
		return fmt.Errorf("account %q: %w", account, ErrPrepaidRequired)
	}
	if p.Bytes < 0 {
		return nil
	}

	needed, overflow := arith.OAdd(p.Used, m.prepaidFee)
	if overflow || uint64(p.Bytes) < needed {
		m.metrics.RecordRejection(ResourcePrepaid)
		return newExceededError(ResourcePrepaid, account, p.Used, uint64(p.Bytes), ErrPrepaidUsageExceeded)
	}
	p.Used = needed
	return nil
}
