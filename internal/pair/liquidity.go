package pair

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/amm"
	"remediPair/internal/model"
)

// Deposit reports the amounts a provider actually paid and the shares minted.
// Any excess of the offered amounts stays with the provider.
type Deposit struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int
}

// Withdrawal reports the shares burned and the amounts paid out.
type Withdrawal struct {
	Shares  *uint256.Int
	AmountA *uint256.Int
	AmountB *uint256.Int
}

// ProvideLiquidity pulls assets from provider and mints shares in return.
// An empty pool accepts any ratio. An active pool only takes the amounts that
// match the current reserve ratio.
func (p *Pair) ProvideLiquidity(provider common.Address, amountA, amountB *uint256.Int) (Deposit, error) {
	const op = "provide"
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := []zap.Field{
		zap.String("provider", provider.Hex()),
		amountField("amount_a", amountA),
		amountField("amount_b", amountB),
	}

	if err := requireAmounts(amountA, amountB); err != nil {
		return Deposit{}, p.fail(op, err, fields...)
	}
	supply := p.shares.TotalSupply()
	usedA, usedB, err := amm.OptimalDeposit(amountA, amountB, p.reserves.a, p.reserves.b)
	if err != nil {
		return Deposit{}, p.fail(op, err, fields...)
	}
	minted, err := amm.QuoteShareMint(usedA, usedB, p.reserves.a, p.reserves.b, supply)
	if err != nil {
		return Deposit{}, p.fail(op, err, fields...)
	}
	next, err := p.reserves.apply(credit(usedA), credit(usedB))
	if err != nil {
		return Deposit{}, p.fail(op, err, fields...)
	}
	expectedSupply, err := amm.Add(supply, minted)
	if err != nil {
		return Deposit{}, p.fail(op, err, fields...)
	}

	p.journal.Begin()
	if err := p.ledgerA.TransferIn(provider, usedA); err != nil {
		return Deposit{}, p.abort(op, collaboratorError("transfer in "+p.cfg.TokenA.Symbol, err), fields...)
	}
	if err := p.ledgerB.TransferIn(provider, usedB); err != nil {
		return Deposit{}, p.abort(op, collaboratorError("transfer in "+p.cfg.TokenB.Symbol, err), fields...)
	}
	if err := p.shares.Mint(provider, minted); err != nil {
		return Deposit{}, p.abort(op, collaboratorError("mint shares", err), fields...)
	}
	if err := p.verifyPostState(next, expectedSupply); err != nil {
		return Deposit{}, p.abort(op, err, fields...)
	}

	p.commit(next, model.PairEvent{
		Kind:    model.EventMint,
		Account: provider.Hex(),
		AmountA: usedA.Dec(),
		AmountB: usedB.Dec(),
		Shares:  minted.Dec(),
	})
	p.metrics.deposit()
	p.logger.Debug("liquidity provided",
		zap.String("provider", provider.Hex()),
		amountField("amount_a", usedA),
		amountField("amount_b", usedB),
		amountField("shares", minted),
	)

	return Deposit{AmountA: usedA, AmountB: usedB, Shares: minted}, nil
}

// WithdrawLiquidity burns shares from provider and pays out the proportional
// amount of both assets.
func (p *Pair) WithdrawLiquidity(provider common.Address, shareAmount *uint256.Int) (Withdrawal, error) {
	const op = "withdraw"
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := []zap.Field{
		zap.String("provider", provider.Hex()),
		amountField("shares", shareAmount),
	}

	if err := requireAmounts(shareAmount); err != nil {
		return Withdrawal{}, p.fail(op, err, fields...)
	}
	if held := p.shares.BalanceOf(provider); shareAmount.Gt(held) {
		err := fmt.Errorf("%w: %s held, %s requested", amm.ErrInsufficientShares, held.Dec(), shareAmount.Dec())
		return Withdrawal{}, p.fail(op, err, fields...)
	}
	supply := p.shares.TotalSupply()
	amountA, amountB, err := amm.QuoteShareRedemption(shareAmount, p.reserves.a, p.reserves.b, supply)
	if err != nil {
		return Withdrawal{}, p.fail(op, err, fields...)
	}
	if amountA.IsZero() || amountB.IsZero() {
		err := fmt.Errorf("%w: redemption of %s shares pays (%s, %s)", amm.ErrZeroAmount, shareAmount.Dec(), amountA.Dec(), amountB.Dec())
		return Withdrawal{}, p.fail(op, err, fields...)
	}
	next, err := p.reserves.apply(debit(amountA), debit(amountB))
	if err != nil {
		return Withdrawal{}, p.fail(op, err, fields...)
	}
	expectedSupply, err := amm.Sub(supply, shareAmount)
	if err != nil {
		return Withdrawal{}, p.fail(op, err, fields...)
	}

	p.journal.Begin()
	if err := p.shares.Burn(provider, shareAmount); err != nil {
		return Withdrawal{}, p.abort(op, collaboratorError("burn shares", err), fields...)
	}
	if err := p.ledgerA.TransferOut(provider, amountA); err != nil {
		return Withdrawal{}, p.abort(op, collaboratorError("transfer out "+p.cfg.TokenA.Symbol, err), fields...)
	}
	if err := p.ledgerB.TransferOut(provider, amountB); err != nil {
		return Withdrawal{}, p.abort(op, collaboratorError("transfer out "+p.cfg.TokenB.Symbol, err), fields...)
	}
	if err := p.verifyPostState(next, expectedSupply); err != nil {
		return Withdrawal{}, p.abort(op, err, fields...)
	}

	p.commit(next, model.PairEvent{
		Kind:    model.EventBurn,
		Account: provider.Hex(),
		AmountA: amountA.Dec(),
		AmountB: amountB.Dec(),
		Shares:  shareAmount.Dec(),
	})
	p.metrics.withdrawal()
	p.logger.Debug("liquidity withdrawn",
		zap.String("provider", provider.Hex()),
		amountField("shares", shareAmount),
		amountField("amount_a", amountA),
		amountField("amount_b", amountB),
	)

	return Withdrawal{Shares: shareAmount, AmountA: amountA, AmountB: amountB}, nil
}

// verifyPostState checks the staged reserves against the share ledger and
// the pool's custody before anything is committed.
func (p *Pair) verifyPostState(next reserveLedger, expectedSupply *uint256.Int) error {
	supply := p.shares.TotalSupply()
	if !supply.Eq(expectedSupply) {
		return fmt.Errorf("%w: share supply %s, expected %s", amm.ErrInvariantViolation, supply.Dec(), expectedSupply.Dec())
	}
	if err := next.checkShape(supply); err != nil {
		return err
	}
	return p.checkCustody(next)
}
