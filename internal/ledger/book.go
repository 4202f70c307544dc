// Package ledger implements in-memory fungible token ledgers kept in one
// Book. A pool groups its ledger calls into a transaction that is either
// committed or discarded as a whole.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrSupplyOverflow        = errors.New("supply overflow")
)

type balanceKey struct {
	token   common.Address
	account common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// Book stores balances, allowances and total supplies for any number of
// tokens.
//
// Direct calls (Token, ShareToken, Export, Import) take the gate, so they
// wait while a transaction is open. Pool-bound accounts (PoolAccount,
// ShareAccount) only take mu and are meant to be called by the holder of the
// open transaction.
type Book struct {
	gate sync.Mutex

	mu         sync.Mutex
	balances   map[balanceKey]*uint256.Int
	allowances map[allowanceKey]*uint256.Int
	supplies   map[common.Address]*uint256.Int
	open       bool
	journal    []journalEntry
}

func NewBook() *Book {
	return &Book{
		balances:   make(map[balanceKey]*uint256.Int),
		allowances: make(map[allowanceKey]*uint256.Int),
		supplies:   make(map[common.Address]*uint256.Int),
	}
}

// Begin opens a transaction. Until Commit or Discard, direct calls from other
// goroutines block and every write is journaled.
func (b *Book) Begin() {
	b.gate.Lock()
	b.mu.Lock()
	b.open = true
	b.journal = b.journal[:0]
	b.mu.Unlock()
}

// Commit keeps the writes of the open transaction.
func (b *Book) Commit() {
	b.mu.Lock()
	b.mustBeOpen("commit")
	b.open = false
	b.journal = b.journal[:0]
	b.mu.Unlock()
	b.gate.Unlock()
}

// Discard undoes the writes of the open transaction.
func (b *Book) Discard() {
	b.mu.Lock()
	b.mustBeOpen("discard")
	for i := len(b.journal) - 1; i >= 0; i-- {
		b.journal[i].revert(b)
	}
	b.open = false
	b.journal = b.journal[:0]
	b.mu.Unlock()
	b.gate.Unlock()
}

func (b *Book) mustBeOpen(action string) {
	if !b.open {
		b.mu.Unlock()
		panic(fmt.Sprintf("ledger: %s without an open transaction", action))
	}
}

// lockDirect serializes a direct call with open transactions.
func (b *Book) lockDirect() {
	b.gate.Lock()
	b.mu.Lock()
}

func (b *Book) unlockDirect() {
	b.mu.Unlock()
	b.gate.Unlock()
}

func (b *Book) record(entry journalEntry) {
	if b.open {
		b.journal = append(b.journal, entry)
	}
}

func (b *Book) balance(token, account common.Address) *uint256.Int {
	if bal, ok := b.balances[balanceKey{token, account}]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (b *Book) setBalance(token, account common.Address, value *uint256.Int) {
	key := balanceKey{token, account}
	prev, ok := b.balances[key]
	b.record(balanceChange{key: key, prev: prev, existed: ok})
	if value.IsZero() {
		delete(b.balances, key)
		return
	}
	b.balances[key] = value
}

func (b *Book) allowance(token, owner, spender common.Address) *uint256.Int {
	if val, ok := b.allowances[allowanceKey{token, owner, spender}]; ok {
		return val.Clone()
	}
	return new(uint256.Int)
}

func (b *Book) setAllowance(token, owner, spender common.Address, value *uint256.Int) {
	key := allowanceKey{token, owner, spender}
	prev, ok := b.allowances[key]
	b.record(allowanceChange{key: key, prev: prev, existed: ok})
	if value.IsZero() {
		delete(b.allowances, key)
		return
	}
	b.allowances[key] = value
}

func (b *Book) supply(token common.Address) *uint256.Int {
	if val, ok := b.supplies[token]; ok {
		return val.Clone()
	}
	return new(uint256.Int)
}

func (b *Book) setSupply(token common.Address, value *uint256.Int) {
	prev, ok := b.supplies[token]
	b.record(supplyChange{token: token, prev: prev, existed: ok})
	if value.IsZero() {
		delete(b.supplies, token)
		return
	}
	b.supplies[token] = value
}

// move transfers amount between accounts. The caller holds b.mu.
func (b *Book) move(token, from, to common.Address, amount *uint256.Int) error {
	fromBal := b.balance(token, from)
	if fromBal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from.Hex(), fromBal.Dec(), amount.Dec())
	}
	if from == to {
		return nil
	}
	b.setBalance(token, from, fromBal.Sub(fromBal, amount))
	toBal := b.balance(token, to)
	b.setBalance(token, to, toBal.Add(toBal, amount))
	return nil
}

func (b *Book) mint(token, to common.Address, amount *uint256.Int) error {
	supply, overflow := new(uint256.Int).AddOverflow(b.supply(token), amount)
	if overflow {
		return fmt.Errorf("%w: minting %s", ErrSupplyOverflow, amount.Dec())
	}
	b.setSupply(token, supply)
	bal := b.balance(token, to)
	b.setBalance(token, to, bal.Add(bal, amount))
	return nil
}

func (b *Book) burn(token, from common.Address, amount *uint256.Int) error {
	bal := b.balance(token, from)
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, burning %s", ErrInsufficientBalance, from.Hex(), bal.Dec(), amount.Dec())
	}
	b.setBalance(token, from, bal.Sub(bal, amount))
	supply := b.supply(token)
	b.setSupply(token, supply.Sub(supply, amount))
	return nil
}
