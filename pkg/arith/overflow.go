// Package arith provides overflow-checked integer arithmetic for resource
// accounting.
//
// Resource math multiplies 64-bit capacities by 64-bit weights and window
// sizes before dividing, so intermediate products routinely exceed 64 bits.
// The helpers here route those products through 128-bit intermediates
// (math/bits) and report overflow explicitly instead of wrapping.
package arith

import (
	"math"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// OAdd adds two values with overflow detection.
func OAdd[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a + b
	overflowed = res < a
	return
}

// OSub subtracts b from a with underflow detection.
func OSub[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	res = a - b
	overflowed = res > a
	return
}

// AddSaturate adds two values, saturating at the maximum value on overflow.
func AddSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OAdd(a, b)
	if overflowed {
		var zero T
		return ^zero
	}
	return res
}

// OMul multiplies two values with overflow detection.
func OMul[T constraints.Unsigned](a, b T) (res T, overflowed bool) {
	if b == 0 {
		return 0, false
	}
	c := a * b
	if c/b != a {
		return 0, true
	}
	return c, false
}

// MulSaturateU64 multiplies two values, saturating at MaxUint64 on overflow.
func MulSaturateU64(a, b uint64) uint64 {
	res, overflowed := OMul(a, b)
	if overflowed {
		return math.MaxUint64
	}
	return res
}

// SubSaturate subtracts b from a, saturating at zero on underflow.
func SubSaturate[T constraints.Unsigned](a, b T) T {
	res, overflowed := OSub(a, b)
	if overflowed {
		return 0
	}
	return res
}

// MulDiv computes a*b/c through a 128-bit intermediate. The overflow flag
// indicates the quotient was 2^64 or greater (or c was zero).
func MulDiv(a, b, c uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if c <= hi {
		return 0, true
	}
	quo, _ := bits.Div64(hi, lo, c)
	return quo, false
}

// MulDivCeil computes ceil(a*b/c) through a 128-bit intermediate.
func MulDivCeil(a, b, c uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if c <= hi {
		return 0, true
	}
	quo, rem := bits.Div64(hi, lo, c)
	if rem > 0 {
		if quo == math.MaxUint64 {
			return 0, true
		}
		quo++
	}
	return quo, false
}

// Mul2Div computes a*b*c/d. On overflow the result is saturated to the
// maximum uint64 and the flag is set.
func Mul2Div(a, b, c, d uint64) (uint64, bool) {
	// a*b yields (X,Y); multiplying each half by c yields a 192-bit value
	// whose top third must be zero for the quotient to fit.
	X, Y := bits.Mul64(a, b)
	J, K := bits.Mul64(Y, c)
	L, M := bits.Mul64(X, c)
	if L > 0 {
		return math.MaxUint64, true
	}

	JplusM := AddSaturate(J, M)
	// Also guards against a carry into the top third: JplusM saturates to
	// MaxUint64 in that case and the division test below fails.
	if d <= JplusM {
		return math.MaxUint64, true
	}

	quo, _ := bits.Div64(JplusM, K, d)
	return quo, false
}

// DivCeil provides math.Ceil semantics using integer division without
// overflowing on large numerators. Both operands are assumed positive; the
// denominator must be nonzero.
func DivCeil[T constraints.Integer](numerator, denominator T) T {
	quo := numerator / denominator
	if numerator%denominator != 0 {
		quo++
	}
	return quo
}
