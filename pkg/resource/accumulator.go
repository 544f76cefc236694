package resource

import (
	"fmt"
	"math"

	"github.com/gstchain/gstio/pkg/arith"
)

// RateLimitingPrecision is the fixed-point scale applied to values stored in
// a UsageAccumulator. Scaling lets the accumulator hold per-window averages
// of integer usage without losing the fractional part to integer division.
const RateLimitingPrecision uint64 = 1000 * 1000

// maxRawValue bounds the raw usage values an accumulator accepts, so that a
// value extended by the precision constant still fits in 64 bits.
const maxRawValue = math.MaxUint64 / RateLimitingPrecision

// UsageAccumulator approximates a trailing moving average over a fixed
// number of periods without storing per-period history.
//
// ValueEx holds the accumulated usage scaled by RateLimitingPrecision and
// divided by the window size; LastOrdinal is the last period the
// accumulator was advanced to. On each Add, the gap since LastOrdinal is
// treated as zero-usage periods: accumulated value decays proportionally to
// the elapsed periods, and fully once the gap reaches the window size.
//
// Memory is O(1) per account, which is what makes per-account windowed
// accounting affordable across the whole chain state.
type UsageAccumulator struct {
	ValueEx     uint64 `json:"value_ex" yaml:"value_ex"`
	LastOrdinal uint32 `json:"last_ordinal" yaml:"last_ordinal"`
}

// Add advances the window to ordinal and accumulates value into it.
//
// Ordinals must be monotonically non-decreasing; an ordinal older than the
// accumulator's last ordinal is rejected with ErrOrdinalReversed. The
// window size must be positive.
func (a *UsageAccumulator) Add(value uint64, ordinal, windowSize uint32) error {
	if windowSize == 0 {
		return fmt.Errorf("%w: zero window size", ErrStateInconsistent)
	}
	if value > maxRawValue {
		return fmt.Errorf("%w: usage %d exceeds maximum representable value", ErrStateInconsistent, value)
	}

	// ceil(value * precision / windowSize); value is bounded above so the
	// 128-bit quotient always fits.
	contrib, _ := arith.MulDivCeil(value, RateLimitingPrecision, uint64(windowSize))

	if a.LastOrdinal != ordinal {
		if ordinal < a.LastOrdinal {
			return fmt.Errorf("%w: ordinal %d after %d", ErrOrdinalReversed, ordinal, a.LastOrdinal)
		}
		if uint64(a.LastOrdinal)+uint64(windowSize) > uint64(ordinal) {
			delta := uint64(ordinal - a.LastOrdinal)
			decayed, overflow := arith.MulDiv(a.ValueEx, uint64(windowSize)-delta, uint64(windowSize))
			if overflow {
				return fmt.Errorf("%w: accumulator decay overflow", ErrStateInconsistent)
			}
			a.ValueEx = decayed
		} else {
			// History beyond the window decays completely.
			a.ValueEx = 0
		}
		a.LastOrdinal = ordinal
	}

	next, overflow := arith.OAdd(a.ValueEx, contrib)
	if overflow {
		return fmt.Errorf("%w: accumulator value overflow", ErrStateInconsistent)
	}
	a.ValueEx = next
	return nil
}

// Average returns the moving average in raw usage units, rounded up.
func (a *UsageAccumulator) Average() uint64 {
	return arith.DivCeil(a.ValueEx, RateLimitingPrecision)
}

// usedInWindow converts the accumulator back into total raw usage within
// the window: valueEx * windowSize / precision, rounded down.
func (a *UsageAccumulator) usedInWindow(windowSize uint32) (uint64, error) {
	used, overflow := arith.MulDiv(a.ValueEx, uint64(windowSize), RateLimitingPrecision)
	if overflow {
		return 0, fmt.Errorf("%w: window usage overflow", ErrStateInconsistent)
	}
	return used, nil
}

// usedInWindowCeil is usedInWindow rounded up. The admission check rounds
// down (in the account's favor); the accessor queries report rounded-up
// consumption so callers never see more headroom than they have.
func (a *UsageAccumulator) usedInWindowCeil(windowSize uint32) (uint64, error) {
	used, overflow := arith.MulDivCeil(a.ValueEx, uint64(windowSize), RateLimitingPrecision)
	if overflow {
		return 0, fmt.Errorf("%w: window usage overflow", ErrStateInconsistent)
	}
	return used, nil
}
