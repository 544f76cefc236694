// Package chain applies the node's chain configuration to the resource
// accounting manager and drives the per-block governance sequence.
package chain

import (
	"fmt"
	"math"
	"time"

	"github.com/gstchain/gstio/pkg/arith"
	"github.com/gstchain/gstio/pkg/config"
	"github.com/gstchain/gstio/pkg/resource"
)

// fullPercent is 100% in the hundredths-of-a-percent representation used
// by the chain configuration.
const fullPercent = 10000

// LedgerConfig derives the resource ledger configuration from the chain
// section: elastic parameter sets for CPU and network plus the per-account
// averaging windows converted from durations to block counts.
func LedgerConfig(c config.ChainConfig) (resource.ConfigObject, error) {
	cpu, net, err := BlockParams(c)
	if err != nil {
		return resource.ConfigObject{}, err
	}

	cpuWindow, err := windowPeriods(c, c.AccountCPUUsageAverageWindow, "account cpu usage average window")
	if err != nil {
		return resource.ConfigObject{}, err
	}
	netWindow, err := windowPeriods(c, c.AccountNetUsageAverageWindow, "account net usage average window")
	if err != nil {
		return resource.ConfigObject{}, err
	}

	return resource.ConfigObject{
		CPULimitParams:               cpu,
		NetLimitParams:               net,
		AccountCPUUsageAverageWindow: cpuWindow,
		AccountNetUsageAverageWindow: netWindow,
	}, nil
}

// BlockParams derives the elastic limit parameter sets for CPU and network
// from the chain section. Targets are percentages of the baseline maxima.
func BlockParams(c config.ChainConfig) (cpu, net resource.ElasticLimitParams, err error) {
	if c.MaxMultiplier > math.MaxUint32 {
		return cpu, net, fmt.Errorf("max multiplier %d does not fit in 32 bits", c.MaxMultiplier)
	}

	cpuPeriods, err := windowPeriods(c, c.BlockCPUUsageAverageWindow, "block cpu usage average window")
	if err != nil {
		return cpu, net, err
	}
	netPeriods, err := windowPeriods(c, c.BlockNetUsageAverageWindow, "block net usage average window")
	if err != nil {
		return cpu, net, err
	}

	cpuTarget, err := percentOf(c.MaxBlockCPUUsage, c.TargetBlockCPUUsagePct)
	if err != nil {
		return cpu, net, fmt.Errorf("cpu target: %w", err)
	}
	netTarget, err := percentOf(c.MaxBlockNetUsage, c.TargetBlockNetUsagePct)
	if err != nil {
		return cpu, net, fmt.Errorf("net target: %w", err)
	}

	cpu = resource.ElasticLimitParams{
		Target:        cpuTarget,
		Max:           c.MaxBlockCPUUsage,
		Periods:       cpuPeriods,
		MaxMultiplier: uint32(c.MaxMultiplier),
		ContractRate:  resource.Ratio{Numerator: c.ContractRate.Numerator, Denominator: c.ContractRate.Denominator},
		ExpandRate:    resource.Ratio{Numerator: c.ExpandRate.Numerator, Denominator: c.ExpandRate.Denominator},
	}
	net = resource.ElasticLimitParams{
		Target:        netTarget,
		Max:           c.MaxBlockNetUsage,
		Periods:       netPeriods,
		MaxMultiplier: uint32(c.MaxMultiplier),
		ContractRate:  cpu.ContractRate,
		ExpandRate:    cpu.ExpandRate,
	}

	if err := cpu.Validate(); err != nil {
		return cpu, net, fmt.Errorf("cpu limit parameters: %w", err)
	}
	if err := net.Validate(); err != nil {
		return cpu, net, fmt.Errorf("net limit parameters: %w", err)
	}
	return cpu, net, nil
}

// windowPeriods converts an averaging window duration into a count of
// block intervals.
func windowPeriods(c config.ChainConfig, window time.Duration, what string) (uint32, error) {
	if c.BlockInterval <= 0 {
		return 0, fmt.Errorf("block interval must be positive")
	}
	if window <= 0 || window%c.BlockInterval != 0 {
		return 0, fmt.Errorf("%s %s is not a whole multiple of the block interval %s", what, window, c.BlockInterval)
	}
	periods := window / c.BlockInterval
	if periods > math.MaxUint32 {
		return 0, fmt.Errorf("%s spans too many block intervals", what)
	}
	return uint32(periods), nil
}

// percentOf computes value*pct where pct is in hundredths of a percent.
func percentOf(value uint64, pct uint32) (uint64, error) {
	if pct == 0 || pct > fullPercent {
		return 0, fmt.Errorf("percentage %d out of range (1..%d)", pct, fullPercent)
	}
	out, overflowed := arith.MulDiv(value, uint64(pct), fullPercent)
	if overflowed {
		return 0, fmt.Errorf("target overflows")
	}
	if out == 0 {
		out = 1
	}
	return out, nil
}
