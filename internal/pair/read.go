package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"remediPair/internal/amm"
	"remediPair/internal/model"
)

// Details is a consistent snapshot of the pool.
type Details struct {
	ReserveA    *uint256.Int
	ReserveB    *uint256.Int
	ShareSupply *uint256.Int
}

// Active reports whether the pool holds liquidity.
func (d Details) Active() bool {
	return !d.ShareSupply.IsZero()
}

// Holdings are an account's balances as reported by the ledgers.
type Holdings struct {
	AssetA *uint256.Int
	AssetB *uint256.Int
	Shares *uint256.Int
}

// PoolDetails returns the reserves and share supply.
func (p *Pair) PoolDetails() Details {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.details()
}

func (p *Pair) details() Details {
	return Details{
		ReserveA:    p.reserves.a.Clone(),
		ReserveB:    p.reserves.b.Clone(),
		ShareSupply: p.shares.TotalSupply(),
	}
}

// HoldingsOf queries the ledgers for account's balances.
func (p *Pair) HoldingsOf(account common.Address) Holdings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Holdings{
		AssetA: p.ledgerA.BalanceOf(account),
		AssetB: p.ledgerB.BalanceOf(account),
		Shares: p.shares.BalanceOf(account),
	}
}

// RequiredTokenA quotes the amount of A matching amountB at the deposit ratio.
func (p *Pair) RequiredTokenA(amountB *uint256.Int) (*uint256.Int, error) {
	if err := requireAmounts(amountB); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shares.TotalSupply().IsZero() {
		return nil, amm.ErrPoolInactive
	}
	return amm.QuoteCounterAmount(amountB, p.reserves.b, p.reserves.a)
}

// RequiredTokenB quotes the amount of B matching amountA at the deposit ratio.
func (p *Pair) RequiredTokenB(amountA *uint256.Int) (*uint256.Int, error) {
	if err := requireAmounts(amountA); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.shares.TotalSupply().IsZero() {
		return nil, amm.ErrPoolInactive
	}
	return amm.QuoteCounterAmount(amountA, p.reserves.a, p.reserves.b)
}

// QuoteSwap returns the output Swap would pay for amountIn right now.
func (p *Pair) QuoteSwap(input Asset, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := requireAmounts(amountIn); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	legs, err := p.legs(input)
	if err != nil {
		return nil, err
	}
	return amm.QuoteSwapOutput(amountIn, legs.reserveIn, legs.reserveOut, p.cfg.FeeBps)
}

// QuoteWithdraw returns what redeeming shareAmount would pay right now.
func (p *Pair) QuoteWithdraw(shareAmount *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := requireAmounts(shareAmount); err != nil {
		return nil, nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return amm.QuoteShareRedemption(shareAmount, p.reserves.a, p.reserves.b, p.shares.TotalSupply())
}

// Snapshot renders the pair identity and pool details for output or storage.
func (p *Pair) Snapshot() model.PoolSnapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d := p.details()
	return model.PoolSnapshot{
		Name:        p.Name(),
		Address:     p.cfg.Address.Hex(),
		AssetA:      p.cfg.TokenA.Address.Hex(),
		AssetB:      p.cfg.TokenB.Address.Hex(),
		ShareToken:  p.cfg.ShareToken.Hex(),
		FeeBps:      p.cfg.FeeBps,
		ReserveA:    d.ReserveA.Dec(),
		ReserveB:    d.ReserveB.Dec(),
		ShareSupply: d.ShareSupply.Dec(),
		Active:      d.Active(),
	}
}

// Record renders account's holdings for output.
func (h Holdings) Record(account common.Address) model.HoldingsRecord {
	return model.HoldingsRecord{
		Account: account.Hex(),
		AssetA:  h.AssetA.Dec(),
		AssetB:  h.AssetB.Dec(),
		Shares:  h.Shares.Dec(),
	}
}
