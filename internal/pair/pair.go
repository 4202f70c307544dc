// Package pair implements a two-asset liquidity pool: it keeps the reserves,
// issues and redeems shares through a share ledger, and executes swaps under
// the constant-product rule. Every state-changing call is all-or-nothing.
package pair

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/amm"
	"remediPair/internal/model"
)

// AssetLedger moves one asset in and out of the pool account.
type AssetLedger interface {
	TransferIn(from common.Address, amount *uint256.Int) error
	TransferOut(to common.Address, amount *uint256.Int) error
	BalanceOf(account common.Address) *uint256.Int
}

// ShareLedger issues and redeems the pool's shares.
type ShareLedger interface {
	Mint(to common.Address, amount *uint256.Int) error
	Burn(from common.Address, amount *uint256.Int) error
	TotalSupply() *uint256.Int
	BalanceOf(account common.Address) *uint256.Int
}

// Journal scopes the collaborator effects of one call. Begin opens a
// transaction that excludes other writers, Commit keeps its effects and
// Discard undoes them. Exactly one of Commit or Discard follows each Begin.
type Journal interface {
	Begin()
	Commit()
	Discard()
}

// EventSink receives one event per committed operation.
type EventSink interface {
	Emit(event model.PairEvent)
}

// Token identifies one side of the pair.
type Token struct {
	Address common.Address
	Name    string
	Symbol  string
}

// Config fixes the identity and fee of a pair at creation.
type Config struct {
	Address    common.Address
	TokenA     Token
	TokenB     Token
	ShareToken common.Address
	FeeBps     uint16
}

// Dependencies are the collaborators a pair calls into.
type Dependencies struct {
	LedgerA AssetLedger
	LedgerB AssetLedger
	Shares  ShareLedger
	Journal Journal
	Sink    EventSink
	Metrics *Metrics
	Now     func() time.Time
}

// Pair is a single pool instance. State-changing calls hold the write lock
// for their whole duration; reads share the read lock.
type Pair struct {
	cfg     Config
	ledgerA AssetLedger
	ledgerB AssetLedger
	shares  ShareLedger
	journal Journal
	sink    EventSink
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	reserves reserveLedger
	sequence uint64
}

func New(cfg Config, deps Dependencies, logger *zap.Logger) (*Pair, error) {
	if cfg.TokenA.Address == cfg.TokenB.Address {
		return nil, fmt.Errorf("%w: %s", amm.ErrSameAsset, cfg.TokenA.Address.Hex())
	}
	if err := amm.ValidateFee(cfg.FeeBps); err != nil {
		return nil, err
	}
	if deps.LedgerA == nil || deps.LedgerB == nil {
		return nil, fmt.Errorf("asset ledgers are required")
	}
	if deps.Shares == nil {
		return nil, fmt.Errorf("share ledger is required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("journal is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	p := &Pair{
		cfg:      cfg,
		ledgerA:  deps.LedgerA,
		ledgerB:  deps.LedgerB,
		shares:   deps.Shares,
		journal:  deps.Journal,
		sink:     deps.Sink,
		metrics:  deps.Metrics,
		logger:   logger.With(zap.String("pair", cfg.Address.Hex())),
		now:      now,
		reserves: newReserveLedger(),
	}
	if err := p.reserves.checkShape(p.shares.TotalSupply()); err != nil {
		return nil, err
	}
	return p, nil
}

// Restore loads reserves saved from an earlier run. The share ledger must
// already hold the matching supply.
func (p *Pair) Restore(reserveA, reserveB *uint256.Int, sequence uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := reserveLedger{a: reserveA.Clone(), b: reserveB.Clone()}
	if err := next.checkShape(p.shares.TotalSupply()); err != nil {
		return err
	}
	if err := p.checkCustody(next); err != nil {
		return err
	}
	p.reserves = next
	p.sequence = sequence
	p.metrics.observe(next, p.shares.TotalSupply())
	return nil
}

// Name follows the "<A> - <B> Pair" convention.
func (p *Pair) Name() string {
	return NameFor(p.cfg.TokenA.Name, p.cfg.TokenB.Name)
}

// NameFor returns the name a pair of the two named assets carries.
func NameFor(nameA, nameB string) string {
	return fmt.Sprintf("%s - %s Pair", nameA, nameB)
}

func (p *Pair) Address() common.Address    { return p.cfg.Address }
func (p *Pair) TokenA() common.Address     { return p.cfg.TokenA.Address }
func (p *Pair) TokenB() common.Address     { return p.cfg.TokenB.Address }
func (p *Pair) ShareToken() common.Address { return p.cfg.ShareToken }
func (p *Pair) FeeBps() uint16             { return p.cfg.FeeBps }

// Sequence is the number of operations committed so far.
func (p *Pair) Sequence() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sequence
}

// checkCustody verifies the pool account holds at least its reserves.
func (p *Pair) checkCustody(r reserveLedger) error {
	if held := p.ledgerA.BalanceOf(p.cfg.Address); held.Lt(r.a) {
		return fmt.Errorf("%w: reserve A %s exceeds held %s", amm.ErrInvariantViolation, r.a.Dec(), held.Dec())
	}
	if held := p.ledgerB.BalanceOf(p.cfg.Address); held.Lt(r.b) {
		return fmt.Errorf("%w: reserve B %s exceeds held %s", amm.ErrInvariantViolation, r.b.Dec(), held.Dec())
	}
	return nil
}

func (p *Pair) fail(op string, err error, fields ...zap.Field) error {
	p.metrics.abort(op)
	p.logger.Warn("operation rejected", append(fields, zap.String("op", op), zap.Error(err))...)
	return err
}

// abort discards the collaborator effects of the open transaction before
// reporting err.
func (p *Pair) abort(op string, err error, fields ...zap.Field) error {
	p.journal.Discard()
	return p.fail(op, err, fields...)
}

// commit closes the open transaction, installs the staged reserves and
// publishes the event. The caller holds the write lock.
func (p *Pair) commit(next reserveLedger, event model.PairEvent) {
	p.journal.Commit()
	p.reserves = next
	p.sequence++

	supply := p.shares.TotalSupply()
	p.metrics.observe(next, supply)
	if p.sink == nil {
		return
	}
	event.Pair = p.Name()
	event.Sequence = p.sequence
	event.ReserveA = next.a.Dec()
	event.ReserveB = next.b.Dec()
	event.ShareSupply = supply.Dec()
	event.Timestamp = p.now().UTC()
	p.sink.Emit(event)
}

// requireAmounts rejects missing amount arguments.
func requireAmounts(amounts ...*uint256.Int) error {
	for _, amount := range amounts {
		if amount == nil {
			return fmt.Errorf("%w: amount is missing", amm.ErrZeroAmount)
		}
	}
	return nil
}

func collaboratorError(action string, err error) error {
	return fmt.Errorf("%w: %s: %w", amm.ErrCollaboratorFailure, action, err)
}

func amountField(key string, v *uint256.Int) zap.Field {
	if v == nil {
		return zap.Skip()
	}
	return zap.String(key, v.Dec())
}
