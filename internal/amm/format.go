package amm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// ParseAmount parses a base-unit decimal integer.
func ParseAmount(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return parsed, nil
}

// ParseUnits converts a human amount such as "18.75" into base units using
// the token decimals. Digits beyond the token precision are rejected.
func ParseUnits(value string, decimals uint8) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	rat, ok := new(big.Rat).SetString(value)
	if !ok || rat.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat.Mul(rat, new(big.Rat).SetInt(scale))
	if !rat.IsInt() {
		return nil, fmt.Errorf("amount %q has more than %d decimals", value, decimals)
	}
	parsed, overflow := uint256.FromBig(rat.Num())
	if overflow {
		return nil, fmt.Errorf("%w: amount %q", ErrArithmeticOverflow, value)
	}
	return parsed, nil
}

// FormatUnits renders a base-unit amount with the token decimals.
func FormatUnits(value *uint256.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.Dec()
	}
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(value.ToBig(), denom)
	text := rat.FloatString(int(decimals))
	text = strings.TrimRight(text, "0")
	return strings.TrimSuffix(text, ".")
}
