// Package amm holds the pure pricing math of a two-asset constant-product
// pool. Every function is side-effect free, integer only, and floors its
// results so quotes never promise more than the pool can pay.
package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// QuoteCounterAmount returns floor(knownAmount * otherReserve / knownReserve),
// the amount of the other asset matching knownAmount at the current deposit
// ratio. Fees are not applied.
func QuoteCounterAmount(knownAmount, knownReserve, otherReserve *uint256.Int) (*uint256.Int, error) {
	if knownReserve.IsZero() || otherReserve.IsZero() {
		return nil, ErrPoolInactive
	}
	return mulDiv(knownAmount, otherReserve, knownReserve)
}

// QuoteShareMint returns the shares minted for depositing amountA and amountB.
// An empty pool mints floor(sqrt(amountA*amountB)); an active pool mints the
// smaller of the two ratio-derived share amounts.
func QuoteShareMint(amountA, amountB, reserveA, reserveB, shareSupply *uint256.Int) (*uint256.Int, error) {
	if shareSupply.IsZero() {
		if amountA.IsZero() || amountB.IsZero() {
			return nil, fmt.Errorf("%w: bootstrap deposit needs both assets", ErrZeroDeposit)
		}
		product, overflow := new(uint256.Int).MulOverflow(amountA, amountB)
		if overflow {
			return nil, fmt.Errorf("%w: %s * %s", ErrArithmeticOverflow, amountA.Dec(), amountB.Dec())
		}
		return new(uint256.Int).Sqrt(product), nil
	}

	if reserveA.IsZero() || reserveB.IsZero() {
		return nil, ErrPoolInactive
	}
	sharesA, err := mulDiv(amountA, shareSupply, reserveA)
	if err != nil {
		return nil, err
	}
	sharesB, err := mulDiv(amountB, shareSupply, reserveB)
	if err != nil {
		return nil, err
	}
	minted := minOf(sharesA, sharesB)
	if minted.IsZero() {
		return nil, fmt.Errorf("%w: deposit mints no shares", ErrZeroDeposit)
	}
	return minted, nil
}

// OptimalDeposit trims the over-supplied leg of a deposit so the used amounts
// match the reserve ratio. An empty pool accepts any ratio and returns the
// inputs unchanged.
func OptimalDeposit(amountA, amountB, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if reserveA.IsZero() && reserveB.IsZero() {
		return amountA.Clone(), amountB.Clone(), nil
	}
	optimalB, err := QuoteCounterAmount(amountA, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !optimalB.Gt(amountB) {
		return amountA.Clone(), optimalB, nil
	}
	optimalA, err := QuoteCounterAmount(amountB, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	return optimalA, amountB.Clone(), nil
}

// QuoteSwapOutput applies the fee to amountIn and returns the constant-product
// output floor(reserveOut * inAfterFee / (reserveIn + inAfterFee)).
func QuoteSwapOutput(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrPoolInactive
	}
	if amountIn.IsZero() {
		return nil, fmt.Errorf("%w: swap input", ErrZeroAmount)
	}
	if err := ValidateFee(feeBps); err != nil {
		return nil, err
	}

	inAfterFee, err := mulDiv(amountIn, uint256.NewInt(uint64(BpsDenominator-feeBps)), bpsDenominator)
	if err != nil {
		return nil, err
	}
	denominator, err := Add(reserveIn, inAfterFee)
	if err != nil {
		return nil, err
	}
	amountOut, err := mulDiv(reserveOut, inAfterFee, denominator)
	if err != nil {
		return nil, err
	}
	if amountOut.IsZero() {
		return nil, ErrInsufficientOutput
	}
	return amountOut, nil
}

// QuoteShareRedemption returns floor(shareAmount * reserveX / shareSupply) for
// both assets. Checking the holder's balance is left to the caller.
func QuoteShareRedemption(shareAmount, reserveA, reserveB, shareSupply *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if shareAmount.IsZero() {
		return nil, nil, fmt.Errorf("%w: zero share amount", ErrInsufficientShares)
	}
	if shareSupply.IsZero() {
		return nil, nil, ErrPoolInactive
	}
	if shareAmount.Gt(shareSupply) {
		return nil, nil, fmt.Errorf("%w: %s exceeds supply %s", ErrInsufficientShares, shareAmount.Dec(), shareSupply.Dec())
	}
	amountA, err := mulDiv(shareAmount, reserveA, shareSupply)
	if err != nil {
		return nil, nil, err
	}
	amountB, err := mulDiv(shareAmount, reserveB, shareSupply)
	if err != nil {
		return nil, nil, err
	}
	return amountA, amountB, nil
}
