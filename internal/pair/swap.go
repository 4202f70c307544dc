package pair

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/amm"
	"remediPair/internal/model"
)

// Asset selects the input side of a swap.
type Asset uint8

const (
	AssetA Asset = iota
	AssetB
)

var ErrUnknownAsset = errors.New("unknown asset")

func (a Asset) String() string {
	switch a {
	case AssetA:
		return "A"
	case AssetB:
		return "B"
	default:
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
}

// ParseAsset accepts "A" or "B" in any case.
func ParseAsset(input string) (Asset, error) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "A":
		return AssetA, nil
	case "B":
		return AssetB, nil
	default:
		return 0, fmt.Errorf("%w %q", ErrUnknownAsset, input)
	}
}

// SwapResult reports a completed trade.
type SwapResult struct {
	Input     Asset
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
}

// swapLegs orients the pool around the input asset.
type swapLegs struct {
	in, out             AssetLedger
	inSymbol, outSymbol string
	reserveIn           *uint256.Int
	reserveOut          *uint256.Int
}

func (p *Pair) legs(input Asset) (swapLegs, error) {
	switch input {
	case AssetA:
		return swapLegs{
			in: p.ledgerA, out: p.ledgerB,
			inSymbol: p.cfg.TokenA.Symbol, outSymbol: p.cfg.TokenB.Symbol,
			reserveIn: p.reserves.a, reserveOut: p.reserves.b,
		}, nil
	case AssetB:
		return swapLegs{
			in: p.ledgerB, out: p.ledgerA,
			inSymbol: p.cfg.TokenB.Symbol, outSymbol: p.cfg.TokenA.Symbol,
			reserveIn: p.reserves.b, reserveOut: p.reserves.a,
		}, nil
	default:
		return swapLegs{}, fmt.Errorf("%w: %s", ErrUnknownAsset, input)
	}
}

// Swap sells amountIn of the input asset for the other asset. It fails with
// amm.ErrSlippageExceeded when the output would fall below minAmountOut.
func (p *Pair) Swap(trader common.Address, input Asset, amountIn, minAmountOut *uint256.Int) (SwapResult, error) {
	const op = "swap"
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := []zap.Field{
		zap.String("trader", trader.Hex()),
		zap.Stringer("input", input),
		amountField("amount_in", amountIn),
		amountField("min_amount_out", minAmountOut),
	}

	if minAmountOut == nil {
		minAmountOut = new(uint256.Int)
	}
	if err := requireAmounts(amountIn); err != nil {
		return SwapResult{}, p.fail(op, err, fields...)
	}
	legs, err := p.legs(input)
	if err != nil {
		return SwapResult{}, p.fail(op, err, fields...)
	}
	amountOut, err := amm.QuoteSwapOutput(amountIn, legs.reserveIn, legs.reserveOut, p.cfg.FeeBps)
	if err != nil {
		return SwapResult{}, p.fail(op, err, fields...)
	}
	if amountOut.Lt(minAmountOut) {
		err := fmt.Errorf("%w: output %s below minimum %s", amm.ErrSlippageExceeded, amountOut.Dec(), minAmountOut.Dec())
		return SwapResult{}, p.fail(op, err, fields...)
	}

	da, db := credit(amountIn), debit(amountOut)
	if input == AssetB {
		da, db = debit(amountOut), credit(amountIn)
	}
	next, err := p.reserves.apply(da, db)
	if err != nil {
		return SwapResult{}, p.fail(op, err, fields...)
	}

	p.journal.Begin()
	if err := legs.in.TransferIn(trader, amountIn); err != nil {
		return SwapResult{}, p.abort(op, collaboratorError("transfer in "+legs.inSymbol, err), fields...)
	}
	if err := legs.out.TransferOut(trader, amountOut); err != nil {
		return SwapResult{}, p.abort(op, collaboratorError("transfer out "+legs.outSymbol, err), fields...)
	}
	if err := amm.CheckConstantProduct(p.reserves.a, p.reserves.b, next.a, next.b); err != nil {
		p.logger.Error("constant product violated", append(fields, zap.Error(err))...)
		return SwapResult{}, p.abort(op, err, fields...)
	}
	if err := p.checkCustody(next); err != nil {
		return SwapResult{}, p.abort(op, err, fields...)
	}

	p.commit(next, model.PairEvent{
		Kind:       model.EventSwap,
		Account:    trader.Hex(),
		InputAsset: input.String(),
		AmountIn:   amountIn.Dec(),
		AmountOut:  amountOut.Dec(),
	})
	p.metrics.swap(input)
	p.logger.Debug("swap executed",
		zap.String("trader", trader.Hex()),
		zap.Stringer("input", input),
		amountField("amount_in", amountIn),
		amountField("amount_out", amountOut),
	)

	return SwapResult{Input: input, AmountIn: amountIn.Clone(), AmountOut: amountOut}, nil
}
