package resource

import (
	"errors"
	"testing"
)

func testConfigObject() ConfigObject {
	return ConfigObject{
		CPULimitParams:               testElasticParams(),
		NetLimitParams:               testElasticParams(),
		AccountCPUUsageAverageWindow: 1,
		AccountNetUsageAverageWindow: 1,
	}
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewLedger(testConfigObject()), Options{})
}

// newWeightedAccount creates an account holding the given settled weights.
func newWeightedAccount(t *testing.T, m *Manager, name AccountName, ram, net, cpu int64) {
	t.Helper()
	if err := m.InitializeAccount(name); err != nil {
		t.Fatalf("InitializeAccount(%q) error = %v", name, err)
	}
	if _, err := m.SetAccountLimits(name, ram, net, cpu); err != nil {
		t.Fatalf("SetAccountLimits(%q) error = %v", name, err)
	}
	if err := m.ProcessAccountLimitUpdates(); err != nil {
		t.Fatalf("ProcessAccountLimitUpdates() error = %v", err)
	}
}

func TestInitializeAccount(t *testing.T) {
	m := newTestManager(t)

	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	ram, net, cpu, err := m.GetAccountLimits("alice")
	if err != nil {
		t.Fatalf("GetAccountLimits() error = %v", err)
	}
	if ram != Unlimited || net != Unlimited || cpu != Unlimited {
		t.Errorf("new account limits = {%d, %d, %d}, want all unlimited", ram, net, cpu)
	}

	usage, err := m.GetAccountRAMUsage("alice")
	if err != nil {
		t.Fatalf("GetAccountRAMUsage() error = %v", err)
	}
	if usage != 0 {
		t.Errorf("new account ram usage = %d, want 0", usage)
	}

	if err := m.InitializeAccount("alice"); !errors.Is(err, ErrAccountExists) {
		t.Errorf("duplicate InitializeAccount() error = %v, want ErrAccountExists", err)
	}
}

func TestUnknownAccount(t *testing.T) {
	m := newTestManager(t)

	if _, _, _, err := m.GetAccountLimits("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("GetAccountLimits() error = %v, want ErrAccountNotFound", err)
	}
	if _, err := m.GetAccountRAMUsage("ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("GetAccountRAMUsage() error = %v, want ErrAccountNotFound", err)
	}
	if err := m.AddTransactionUsage([]AccountName{"ghost"}, 1, 1, 1); !errors.Is(err, ErrAccountNotFound) {
		t.Errorf("AddTransactionUsage() error = %v, want ErrAccountNotFound", err)
	}
}

func TestSetAccountLimitsStagedThenSettled(t *testing.T) {
	m := newTestManager(t)
	state := m.Ledger().State()

	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}
	if _, err := m.SetAccountLimits("alice", 4096, 10, 20); err != nil {
		t.Fatalf("SetAccountLimits() error = %v", err)
	}

	// Staged limits are visible immediately but excluded from totals.
	ram, net, cpu, err := m.GetAccountLimits("alice")
	if err != nil {
		t.Fatalf("GetAccountLimits() error = %v", err)
	}
	if ram != 4096 || net != 10 || cpu != 20 {
		t.Errorf("staged limits = {%d, %d, %d}, want {4096, 10, 20}", ram, net, cpu)
	}
	if state.TotalRAMBytes != 0 || state.TotalNetWeight != 0 || state.TotalCPUWeight != 0 {
		t.Errorf("totals changed before settlement: ram=%d net=%d cpu=%d",
			state.TotalRAMBytes, state.TotalNetWeight, state.TotalCPUWeight)
	}

	if err := m.ProcessAccountLimitUpdates(); err != nil {
		t.Fatalf("ProcessAccountLimitUpdates() error = %v", err)
	}

	ram, net, cpu, err = m.GetAccountLimits("alice")
	if err != nil {
		t.Fatalf("GetAccountLimits() error = %v", err)
	}
	if ram != 4096 || net != 10 || cpu != 20 {
		t.Errorf("settled limits = {%d, %d, %d}, want {4096, 10, 20}", ram, net, cpu)
	}
	if state.TotalRAMBytes != 4096 || state.TotalNetWeight != 10 || state.TotalCPUWeight != 20 {
		t.Errorf("settled totals: ram=%d net=%d cpu=%d, want 4096/10/20",
			state.TotalRAMBytes, state.TotalNetWeight, state.TotalCPUWeight)
	}

	// A second settlement pass with nothing staged applies the delta zero
	// more times.
	if err := m.ProcessAccountLimitUpdates(); err != nil {
		t.Fatalf("ProcessAccountLimitUpdates() error = %v", err)
	}
	if state.TotalRAMBytes != 4096 || state.TotalNetWeight != 10 || state.TotalCPUWeight != 20 {
		t.Errorf("totals double-counted: ram=%d net=%d cpu=%d",
			state.TotalRAMBytes, state.TotalNetWeight, state.TotalCPUWeight)
	}
}

func TestSetAccountLimitsReplacesWeightInTotals(t *testing.T) {
	m := newTestManager(t)
	state := m.Ledger().State()

	newWeightedAccount(t, m, "alice", 4096, 10, 20)

	if _, err := m.SetAccountLimits("alice", 2048, 5, Unlimited); err != nil {
		t.Fatalf("SetAccountLimits() error = %v", err)
	}
	if err := m.ProcessAccountLimitUpdates(); err != nil {
		t.Fatalf("ProcessAccountLimitUpdates() error = %v", err)
	}

	if state.TotalRAMBytes != 2048 || state.TotalNetWeight != 5 || state.TotalCPUWeight != 0 {
		t.Errorf("totals after re-settle: ram=%d net=%d cpu=%d, want 2048/5/0",
			state.TotalRAMBytes, state.TotalNetWeight, state.TotalCPUWeight)
	}
}

func TestSetAccountLimitsReportsDecrease(t *testing.T) {
	m := newTestManager(t)
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	tests := []struct {
		name     string
		ramBytes int64
		want     bool
	}{
		{name: "unlimited to finite", ramBytes: 1000, want: true},
		{name: "increase", ramBytes: 2000, want: false},
		{name: "decrease", ramBytes: 500, want: true},
		{name: "back to unlimited", ramBytes: Unlimited, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.SetAccountLimits("alice", tt.ramBytes, Unlimited, Unlimited)
			if err != nil {
				t.Fatalf("SetAccountLimits() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decrease = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFairShareRejection(t *testing.T) {
	m := newTestManager(t)
	newWeightedAccount(t, m, "alice", Unlimited, Unlimited, 1)

	// Sole weight holder of a 1,000,000 virtual limit over a one-period
	// window: the full limit is the fair share.
	if err := m.AddTransactionUsage([]AccountName{"alice"}, 500_000, 0, 1); err != nil {
		t.Fatalf("AddTransactionUsage(500000) error = %v", err)
	}

	err := m.AddTransactionUsage([]AccountName{"alice"}, 600_000, 0, 1)
	if !errors.Is(err, ErrTxCPUUsageExceeded) {
		t.Fatalf("AddTransactionUsage(600000) error = %v, want ErrTxCPUUsageExceeded", err)
	}

	var exceeded *ExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("error %T does not carry exceeded details", err)
	}
	if exceeded.Account != "alice" || exceeded.Resource != ResourceCPU {
		t.Errorf("exceeded = %q/%s, want alice/cpu", exceeded.Account, exceeded.Resource)
	}
	if exceeded.Used != 1_100_000 || exceeded.Max != 1_000_000 {
		t.Errorf("exceeded used=%d max=%d, want 1100000/1000000", exceeded.Used, exceeded.Max)
	}
}

func TestFairShareChargeUpToMaxSucceeds(t *testing.T) {
	m := newTestManager(t)
	newWeightedAccount(t, m, "alice", Unlimited, Unlimited, 1)

	if err := m.AddTransactionUsage([]AccountName{"alice"}, 1_000_000, 0, 1); err != nil {
		t.Fatalf("charging exactly the fair share failed: %v", err)
	}
}

func TestFairShareSplitsAcrossWeights(t *testing.T) {
	m := newTestManager(t)
	newWeightedAccount(t, m, "alice", Unlimited, Unlimited, 1)
	newWeightedAccount(t, m, "bob", Unlimited, Unlimited, 3)

	// Total weight 4: alice's share of the 1,000,000 limit is 250,000.
	if err := m.AddTransactionUsage([]AccountName{"alice"}, 250_000, 0, 1); err != nil {
		t.Fatalf("charging within share failed: %v", err)
	}
	err := m.AddTransactionUsage([]AccountName{"alice"}, 1, 0, 1)
	if !errors.Is(err, ErrTxCPUUsageExceeded) {
		t.Fatalf("charging past share error = %v, want ErrTxCPUUsageExceeded", err)
	}

	// Bob's larger weight buys the remaining three quarters.
	if err := m.AddTransactionUsage([]AccountName{"bob"}, 700_000, 0, 1); err != nil {
		t.Fatalf("charging bob within share failed: %v", err)
	}
}

func TestUnweightedAccountUnlimited(t *testing.T) {
	m := newTestManager(t)

	// Account with no weight while another account carries the totals.
	newWeightedAccount(t, m, "whale", Unlimited, 10, 10)
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	for _, elastic := range []bool{false, true} {
		arl, err := m.GetAccountCPULimitEx("alice", elastic)
		if err != nil {
			t.Fatalf("GetAccountCPULimitEx(elastic=%v) error = %v", elastic, err)
		}
		if arl != UnlimitedResourceLimit() {
			t.Errorf("cpu limit (elastic=%v) = %+v, want {-1 -1 -1}", elastic, arl)
		}
		arl, err = m.GetAccountNetLimitEx("alice", elastic)
		if err != nil {
			t.Fatalf("GetAccountNetLimitEx(elastic=%v) error = %v", elastic, err)
		}
		if arl != UnlimitedResourceLimit() {
			t.Errorf("net limit (elastic=%v) = %+v, want {-1 -1 -1}", elastic, arl)
		}
	}
}

func TestZeroTotalWeightUnlimited(t *testing.T) {
	m := newTestManager(t)
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	// No account holds weight, so even a weighted query is unconstrained.
	arl, err := m.GetAccountCPULimitEx("alice", true)
	if err != nil {
		t.Fatalf("GetAccountCPULimitEx() error = %v", err)
	}
	if arl != UnlimitedResourceLimit() {
		t.Errorf("cpu limit = %+v, want {-1 -1 -1}", arl)
	}
}

func TestUsedPlusAvailableEqualsMax(t *testing.T) {
	m := newTestManager(t)
	newWeightedAccount(t, m, "alice", Unlimited, 2, 2)
	newWeightedAccount(t, m, "bob", Unlimited, 6, 6)

	if err := m.AddTransactionUsage([]AccountName{"alice"}, 123_456, 54_321, 1); err != nil {
		t.Fatalf("AddTransactionUsage() error = %v", err)
	}

	for _, name := range []AccountName{"alice", "bob"} {
		cpu, err := m.GetAccountCPULimitEx(name, true)
		if err != nil {
			t.Fatalf("GetAccountCPULimitEx(%q) error = %v", name, err)
		}
		if cpu.Used+cpu.Available != cpu.Max {
			t.Errorf("%q cpu: used %d + available %d != max %d", name, cpu.Used, cpu.Available, cpu.Max)
		}
		net, err := m.GetAccountNetLimitEx(name, true)
		if err != nil {
			t.Fatalf("GetAccountNetLimitEx(%q) error = %v", name, err)
		}
		if net.Used+net.Available != net.Max {
			t.Errorf("%q net: used %d + available %d != max %d", name, net.Used, net.Available, net.Max)
		}
	}
}

func TestBlockExhausted(t *testing.T) {
	m := newTestManager(t)
	max := m.Ledger().Config().CPULimitParams.Max

	// Unweighted accounts skip the fair-share check, so the block aggregate
	// is the binding constraint.
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	if err := m.AddTransactionUsage([]AccountName{"alice"}, max, 0, 1); err != nil {
		t.Fatalf("filling the block failed: %v", err)
	}

	err := m.AddTransactionUsage([]AccountName{"alice"}, 1, 0, 1)
	if !errors.Is(err, ErrBlockResourceExhausted) {
		t.Fatalf("overfilling error = %v, want ErrBlockResourceExhausted", err)
	}
	var exhausted *BlockExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T does not carry block details", err)
	}
	if exhausted.Resource != ResourceCPU || exhausted.Pending != max+1 || exhausted.Max != max {
		t.Errorf("exhausted = %+v, want cpu pending=%d max=%d", exhausted, max+1, max)
	}
}

func TestProcessBlockUsageResetsPending(t *testing.T) {
	m := newTestManager(t)
	state := m.Ledger().State()

	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}
	if err := m.AddTransactionUsage([]AccountName{"alice"}, 120_000, 60_000, 1); err != nil {
		t.Fatalf("AddTransactionUsage() error = %v", err)
	}
	if state.PendingCPUUsage != 120_000 || state.PendingNetUsage != 60_000 {
		t.Fatalf("pending = %d/%d, want 120000/60000", state.PendingCPUUsage, state.PendingNetUsage)
	}

	if err := m.ProcessBlockUsage(1); err != nil {
		t.Fatalf("ProcessBlockUsage() error = %v", err)
	}

	if state.PendingCPUUsage != 0 || state.PendingNetUsage != 0 {
		t.Errorf("pending not reset: cpu=%d net=%d", state.PendingCPUUsage, state.PendingNetUsage)
	}
	// 120,000 over a 120-period window averages to 1,000 per period.
	if got := state.AverageBlockCPUUsage.Average(); got != 1000 {
		t.Errorf("block cpu average = %d, want 1000", got)
	}
	if got := state.AverageBlockNetUsage.Average(); got != 500 {
		t.Errorf("block net average = %d, want 500", got)
	}
}

func TestVirtualLimitExpandsWhileIdle(t *testing.T) {
	m := newTestManager(t)
	params := m.Ledger().Config().CPULimitParams
	start := m.GetVirtualBlockCPULimit()

	for block := uint32(1); block <= 200; block++ {
		if err := m.ProcessBlockUsage(block); err != nil {
			t.Fatalf("ProcessBlockUsage(%d) error = %v", block, err)
		}
	}

	got := m.GetVirtualBlockCPULimit()
	if got <= start {
		t.Errorf("virtual limit did not expand: %d -> %d", start, got)
	}
	if ceiling := params.Max * uint64(params.MaxMultiplier); got > ceiling {
		t.Errorf("virtual limit %d exceeds ceiling %d", got, ceiling)
	}
}

func TestVirtualLimitContractsUnderLoad(t *testing.T) {
	m := newTestManager(t)
	state := m.Ledger().State()
	params := m.Ledger().Config().CPULimitParams

	// Start from an oversold limit, then sustain usage above target.
	state.VirtualCPULimit = params.Max * 10
	for block := uint32(1); block <= 2000; block++ {
		state.PendingCPUUsage = params.Max
		state.PendingNetUsage = 0
		if err := m.ProcessBlockUsage(block); err != nil {
			t.Fatalf("ProcessBlockUsage(%d) error = %v", block, err)
		}
	}

	if got := m.GetVirtualBlockCPULimit(); got != params.Max {
		t.Errorf("virtual limit under sustained load = %d, want baseline %d", got, params.Max)
	}
}

func TestGetBlockLimitsTrackPending(t *testing.T) {
	m := newTestManager(t)
	config := m.Ledger().Config()

	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}
	if err := m.AddTransactionUsage([]AccountName{"alice"}, 100_000, 40_000, 1); err != nil {
		t.Fatalf("AddTransactionUsage() error = %v", err)
	}

	if got, want := m.GetBlockCPULimit(), config.CPULimitParams.Max-100_000; got != want {
		t.Errorf("GetBlockCPULimit() = %d, want %d", got, want)
	}
	if got, want := m.GetBlockNetLimit(), config.NetLimitParams.Max-40_000; got != want {
		t.Errorf("GetBlockNetLimit() = %d, want %d", got, want)
	}
}

func TestUpdateAccountUsageDecays(t *testing.T) {
	m := newTestManager(t)
	config := m.Ledger().Config()
	config.AccountCPUUsageAverageWindow = 10
	config.AccountNetUsageAverageWindow = 10

	newWeightedAccount(t, m, "alice", Unlimited, 1, 1)
	if err := m.AddTransactionUsage([]AccountName{"alice"}, 100_000, 100_000, 1); err != nil {
		t.Fatalf("AddTransactionUsage() error = %v", err)
	}

	before, err := m.GetAccountCPULimitEx("alice", true)
	if err != nil {
		t.Fatalf("GetAccountCPULimitEx() error = %v", err)
	}

	if err := m.UpdateAccountUsage([]AccountName{"alice"}, 6); err != nil {
		t.Fatalf("UpdateAccountUsage() error = %v", err)
	}

	after, err := m.GetAccountCPULimitEx("alice", true)
	if err != nil {
		t.Fatalf("GetAccountCPULimitEx() error = %v", err)
	}
	if after.Used >= before.Used {
		t.Errorf("usage did not decay: %d -> %d", before.Used, after.Used)
	}
}

func TestAddPendingRAMUsage(t *testing.T) {
	m := newTestManager(t)
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}

	if err := m.AddPendingRAMUsage("alice", 50); err != nil {
		t.Fatalf("AddPendingRAMUsage(+50) error = %v", err)
	}

	// An underflowing refund fails and leaves the usage untouched.
	if err := m.AddPendingRAMUsage("alice", -100); !errors.Is(err, ErrStateInconsistent) {
		t.Fatalf("AddPendingRAMUsage(-100) error = %v, want ErrStateInconsistent", err)
	}
	usage, err := m.GetAccountRAMUsage("alice")
	if err != nil {
		t.Fatalf("GetAccountRAMUsage() error = %v", err)
	}
	if usage != 50 {
		t.Errorf("ram usage after failed delta = %d, want 50", usage)
	}

	if err := m.AddPendingRAMUsage("alice", -50); err != nil {
		t.Fatalf("AddPendingRAMUsage(-50) error = %v", err)
	}
	usage, err = m.GetAccountRAMUsage("alice")
	if err != nil {
		t.Fatalf("GetAccountRAMUsage() error = %v", err)
	}
	if usage != 0 {
		t.Errorf("ram usage = %d, want 0", usage)
	}
}

func TestVerifyAccountRAMUsage(t *testing.T) {
	m := newTestManager(t)
	if err := m.InitializeAccount("alice"); err != nil {
		t.Fatalf("InitializeAccount() error = %v", err)
	}
	if err := m.AddPendingRAMUsage("alice", 150); err != nil {
		t.Fatalf("AddPendingRAMUsage() error = %v", err)
	}

	// Unlimited cap never fails.
	if err := m.VerifyAccountRAMUsage("alice"); err != nil {
		t.Fatalf("VerifyAccountRAMUsage() with unlimited cap error = %v", err)
	}

	// Staged caps bind immediately, before settlement.
	if _, err := m.SetAccountLimits("alice", 100, Unlimited, Unlimited); err != nil {
		t.Fatalf("SetAccountLimits() error = %v", err)
	}
	err := m.VerifyAccountRAMUsage("alice")
	if !errors.Is(err, ErrRAMUsageExceeded) {
		t.Fatalf("VerifyAccountRAMUsage() error = %v, want ErrRAMUsageExceeded", err)
	}

	if _, err := m.SetAccountLimits("alice", 150, Unlimited, Unlimited); err != nil {
		t.Fatalf("SetAccountLimits() error = %v", err)
	}
	if err := m.VerifyAccountRAMUsage("alice"); err != nil {
		t.Errorf("VerifyAccountRAMUsage() at exactly the cap error = %v", err)
	}
}

func TestSetBlockParameters(t *testing.T) {
	m := newTestManager(t)
	config := m.Ledger().Config()
	original := *config

	bad := testElasticParams()
	bad.Periods = 0
	if err := m.SetBlockParameters(bad, testElasticParams()); !errors.Is(err, ErrInvalidLimitParams) {
		t.Fatalf("SetBlockParameters() error = %v, want ErrInvalidLimitParams", err)
	}
	if *config != original {
		t.Errorf("config mutated by rejected parameters")
	}

	next := testElasticParams()
	next.Max = 2_000_000
	if err := m.SetBlockParameters(next, next); err != nil {
		t.Fatalf("SetBlockParameters() error = %v", err)
	}
	if config.CPULimitParams.Max != 2_000_000 || config.NetLimitParams.Max != 2_000_000 {
		t.Errorf("parameters not applied: cpu max=%d net max=%d",
			config.CPULimitParams.Max, config.NetLimitParams.Max)
	}
}

func TestAddTransactionUsageChargesAllAuthorizers(t *testing.T) {
	m := newTestManager(t)
	newWeightedAccount(t, m, "alice", Unlimited, 1, 1)
	newWeightedAccount(t, m, "bob", Unlimited, 1, 1)

	if err := m.AddTransactionUsage([]AccountName{"alice", "bob"}, 100_000, 50_000, 1); err != nil {
		t.Fatalf("AddTransactionUsage() error = %v", err)
	}

	for _, name := range []AccountName{"alice", "bob"} {
		arl, err := m.GetAccountCPULimitEx(name, true)
		if err != nil {
			t.Fatalf("GetAccountCPULimitEx(%q) error = %v", name, err)
		}
		if arl.Used != 100_000 {
			t.Errorf("%q cpu used = %d, want 100000", name, arl.Used)
		}
	}

	// The block sees the transaction once, not once per authorizer.
	state := m.Ledger().State()
	if state.PendingCPUUsage != 100_000 || state.PendingNetUsage != 50_000 {
		t.Errorf("pending = %d/%d, want 100000/50000", state.PendingCPUUsage, state.PendingNetUsage)
	}
}
