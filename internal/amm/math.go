package amm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

const (
	// BpsDenominator is the basis point scale of fee rates.
	BpsDenominator = 10_000
	// DefaultFeeBps is the swap fee used when none is configured (0.3%).
	DefaultFeeBps = 30
)

var bpsDenominator = uint256.NewInt(BpsDenominator)

// ValidateFee reports whether feeBps leaves a non-zero share of every input.
func ValidateFee(feeBps uint16) error {
	if feeBps >= BpsDenominator {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, feeBps)
	}
	return nil
}

// mulDiv computes floor(x*y/d) with a 512-bit intermediate product.
// d must be non-zero.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrArithmeticOverflow)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: %s * %s / %s", ErrArithmeticOverflow, x.Dec(), y.Dec(), d.Dec())
	}
	return z, nil
}

// Add returns x+y or ErrArithmeticOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, fmt.Errorf("%w: %s + %s", ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

// Sub returns x-y or ErrArithmeticOverflow when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, fmt.Errorf("%w: %s - %s", ErrArithmeticOverflow, x.Dec(), y.Dec())
	}
	return z, nil
}

func minOf(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x
	}
	return y
}

// CheckConstantProduct verifies afterA*afterB >= beforeA*beforeB. The products
// are compared in math/big so no width limit applies.
func CheckConstantProduct(beforeA, beforeB, afterA, afterB *uint256.Int) error {
	before := new(big.Int).Mul(beforeA.ToBig(), beforeB.ToBig())
	after := new(big.Int).Mul(afterA.ToBig(), afterB.ToBig())
	if after.Cmp(before) < 0 {
		return fmt.Errorf("%w: product decreased from %s to %s", ErrInvariantViolation, before, after)
	}
	return nil
}
