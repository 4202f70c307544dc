// Package scenario replays scripted operations against a pair backed by the
// in-memory ledger and converts the whole setup to and from model.PoolState.
package scenario

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"remediPair/internal/ledger"
	"remediPair/internal/model"
	"remediPair/internal/pair"
)

const defaultDecimals = 18

// Options configure a World.
type Options struct {
	AssetA  pair.Token
	AssetB  pair.Token
	FeeBps  uint16
	Sink    pair.EventSink
	Metrics *pair.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// World is a pair wired to its ledgers.
type World struct {
	Book   *ledger.Book
	TokenA *ledger.Token
	TokenB *ledger.Token
	Shares *ledger.ShareToken
	Pair   *pair.Pair
}

// NewWorld creates an empty pool. Token addresses left zero are derived
// from the symbols.
func NewWorld(opts Options) (*World, error) {
	if opts.AssetA.Address == (common.Address{}) {
		opts.AssetA.Address = DeriveAddress("token", opts.AssetA.Symbol)
	}
	if opts.AssetB.Address == (common.Address{}) {
		opts.AssetB.Address = DeriveAddress("token", opts.AssetB.Symbol)
	}
	poolID := opts.AssetA.Symbol + "/" + opts.AssetB.Symbol
	return build(opts, DeriveAddress("pair", poolID), DeriveAddress("share", poolID))
}

func build(opts Options, poolAddr, shareAddr common.Address) (*World, error) {
	book := ledger.NewBook()
	w := &World{
		Book:   book,
		TokenA: ledger.NewToken(book, opts.AssetA.Address, opts.AssetA.Name, opts.AssetA.Symbol),
		TokenB: ledger.NewToken(book, opts.AssetB.Address, opts.AssetB.Name, opts.AssetB.Symbol),
		Shares: ledger.NewShareToken(book, shareAddr, "LPToken", "LPT"),
	}

	p, err := pair.New(pair.Config{
		Address:    poolAddr,
		TokenA:     opts.AssetA,
		TokenB:     opts.AssetB,
		ShareToken: shareAddr,
		FeeBps:     opts.FeeBps,
	}, pair.Dependencies{
		LedgerA: w.TokenA.Spender(poolAddr),
		LedgerB: w.TokenB.Spender(poolAddr),
		Shares:  w.Shares.Minter(poolAddr),
		Journal: book,
		Sink:    opts.Sink,
		Metrics: opts.Metrics,
		Now:     opts.Now,
	}, opts.Logger)
	if err != nil {
		return nil, err
	}
	w.Pair = p
	w.Shares.GrantMinter(poolAddr)
	return w, nil
}

// Restore rebuilds a World from saved state. Identity and fee come from the
// state; sink, metrics and logger from opts.
func Restore(state model.PoolState, opts Options) (*World, error) {
	tokens := make(map[string]model.TokenMeta, len(state.Tokens))
	for _, meta := range state.Tokens {
		tokens[strings.ToLower(meta.Address)] = meta
	}
	tokenFor := func(address string) (pair.Token, error) {
		if !common.IsHexAddress(address) {
			return pair.Token{}, fmt.Errorf("invalid asset address %q", address)
		}
		meta := tokens[strings.ToLower(address)]
		return pair.Token{Address: common.HexToAddress(address), Name: meta.Name, Symbol: meta.Symbol}, nil
	}

	var err error
	if opts.AssetA, err = tokenFor(state.Pair.AssetA); err != nil {
		return nil, err
	}
	if opts.AssetB, err = tokenFor(state.Pair.AssetB); err != nil {
		return nil, err
	}
	opts.FeeBps = state.Pair.FeeBps
	if !common.IsHexAddress(state.Pair.Address) || !common.IsHexAddress(state.Pair.ShareToken) {
		return nil, fmt.Errorf("invalid pair or share token address")
	}

	w, err := build(opts, common.HexToAddress(state.Pair.Address), common.HexToAddress(state.Pair.ShareToken))
	if err != nil {
		return nil, err
	}
	if err := w.Book.Import(state.Supplies, state.Balances, state.Allowances); err != nil {
		return nil, fmt.Errorf("import ledger: %w", err)
	}
	for _, minter := range state.Minters {
		if !common.IsHexAddress(minter) {
			return nil, fmt.Errorf("invalid minter %q", minter)
		}
		w.Shares.GrantMinter(common.HexToAddress(minter))
	}

	reserveA, err := uint256.FromDecimal(state.Pair.ReserveA)
	if err != nil {
		return nil, fmt.Errorf("reserve a: %w", err)
	}
	reserveB, err := uint256.FromDecimal(state.Pair.ReserveB)
	if err != nil {
		return nil, fmt.Errorf("reserve b: %w", err)
	}
	if err := w.Pair.Restore(reserveA, reserveB, state.Sequence); err != nil {
		return nil, fmt.Errorf("restore reserves: %w", err)
	}
	return w, nil
}

// Capture renders the World as persistable state.
func (w *World) Capture() model.PoolState {
	supplies, balances, allowances := w.Book.Export()

	minters := make([]string, 0)
	for _, account := range w.Shares.Minters() {
		minters = append(minters, account.Hex())
	}
	sort.Strings(minters)

	return model.PoolState{
		Pair: w.Pair.Snapshot(),
		Tokens: []model.TokenMeta{
			tokenMeta(w.TokenA.Address(), w.TokenA.Name(), w.TokenA.Symbol()),
			tokenMeta(w.TokenB.Address(), w.TokenB.Name(), w.TokenB.Symbol()),
			tokenMeta(w.Shares.Address(), w.Shares.Name(), w.Shares.Symbol()),
		},
		Supplies:   supplies,
		Balances:   balances,
		Allowances: allowances,
		Minters:    minters,
		Sequence:   w.Pair.Sequence(),
	}
}

func tokenMeta(address common.Address, name, symbol string) model.TokenMeta {
	return model.TokenMeta{Address: address.Hex(), Decimals: defaultDecimals, Name: name, Symbol: symbol}
}

// DeriveAddress maps a label to a stable address: the last 20 bytes of
// keccak256(kind ":" label).
func DeriveAddress(kind, label string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(kind + ":" + label)))
}

// ResolveAccount accepts a hex address or a free-form label such as "alice".
func ResolveAccount(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return common.Address{}, fmt.Errorf("account is required")
	}
	if common.IsHexAddress(input) {
		return common.HexToAddress(input), nil
	}
	if strings.HasPrefix(input, "0x") {
		return common.Address{}, fmt.Errorf("invalid account address: %s", input)
	}
	return DeriveAddress("account", strings.ToLower(input)), nil
}
