package resource

import (
	"fmt"

	"github.com/gstchain/gstio/pkg/arith"
)

// Ratio is an exact rational multiplier.
type Ratio struct {
	Numerator   uint64 `json:"numerator" yaml:"numerator"`
	Denominator uint64 `json:"denominator" yaml:"denominator"`
}

// ElasticLimitParams governs how a block resource's virtual limit responds
// to congestion.
//
// While average usage over the trailing Periods stays at or below Target,
// the virtual limit expands by ExpandRate each block, up to
// Max*MaxMultiplier; once average usage rises above Target it contracts by
// ContractRate each block, back down to Max. The multiplier is the degree
// to which the chain oversells idle capacity.
type ElasticLimitParams struct {
	// Target is the desired average usage per period.
	Target uint64 `json:"target" yaml:"target"`

	// Max is the baseline maximum usage per period.
	Max uint64 `json:"max" yaml:"max"`

	// Periods is the number of aggregation periods contributing to the
	// average usage.
	Periods uint32 `json:"periods" yaml:"periods"`

	// MaxMultiplier is how far the virtual limit may oversell Max when
	// the resource is uncongested.
	MaxMultiplier uint32 `json:"max_multiplier" yaml:"max_multiplier"`

	// ContractRate is the per-period shrink ratio applied while congested.
	ContractRate Ratio `json:"contract_rate" yaml:"contract_rate"`

	// ExpandRate is the per-period growth ratio applied while uncongested.
	ExpandRate Ratio `json:"expand_rate" yaml:"expand_rate"`
}

// Validate rejects parameter sets that would divide by zero later on.
// Invalid parameters are a fatal configuration error; they are never
// silently defaulted.
func (p ElasticLimitParams) Validate() error {
	if p.Periods == 0 {
		return fmt.Errorf("%w: periods cannot be zero", ErrInvalidLimitParams)
	}
	if p.ContractRate.Denominator == 0 {
		return fmt.Errorf("%w: contract rate is not a well-defined ratio", ErrInvalidLimitParams)
	}
	if p.ExpandRate.Denominator == 0 {
		return fmt.Errorf("%w: expand rate is not a well-defined ratio", ErrInvalidLimitParams)
	}
	return nil
}

// updateElasticLimit computes the next virtual limit from the current one
// and the trailing average usage.
//
// The rates are applied as true ratios (current * numerator / denominator)
// through a 128-bit intermediate, so a 99/100 contract rate shrinks the
// limit by one percent per period.
//
// The result is clamped to [max, max*maxMultiplier] with saturating
// arithmetic, so a runaway multiplier cannot push the limit past the
// representable range.
func updateElasticLimit(current, averageUsage uint64, params ElasticLimitParams) uint64 {
	rate := params.ExpandRate
	if averageUsage > params.Target {
		rate = params.ContractRate
	}

	result, overflow := arith.MulDiv(current, rate.Numerator, rate.Denominator)
	if overflow {
		result = ^uint64(0)
	}

	ceiling := arith.MulSaturateU64(params.Max, uint64(params.MaxMultiplier))
	if result > ceiling {
		result = ceiling
	}
	if result < params.Max {
		result = params.Max
	}
	return result
}
