package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ShareToken is a transferable token whose supply only changes through
// accounts holding the minter role.
type ShareToken struct {
	token *Token

	mu      sync.RWMutex
	minters map[common.Address]struct{}
}

func NewShareToken(book *Book, address common.Address, name, symbol string) *ShareToken {
	return &ShareToken{
		token:   NewToken(book, address, name, symbol),
		minters: make(map[common.Address]struct{}),
	}
}

func (s *ShareToken) Address() common.Address { return s.token.Address() }
func (s *ShareToken) Name() string            { return s.token.Name() }
func (s *ShareToken) Symbol() string          { return s.token.Symbol() }

func (s *ShareToken) BalanceOf(account common.Address) *uint256.Int {
	return s.token.BalanceOf(account)
}

func (s *ShareToken) TotalSupply() *uint256.Int {
	return s.token.TotalSupply()
}

// GrantMinter gives account the right to mint and burn shares.
func (s *ShareToken) GrantMinter(account common.Address) {
	s.mu.Lock()
	s.minters[account] = struct{}{}
	s.mu.Unlock()
}

// RevokeMinter removes the minter role from account.
func (s *ShareToken) RevokeMinter(account common.Address) {
	s.mu.Lock()
	delete(s.minters, account)
	s.mu.Unlock()
}

func (s *ShareToken) IsMinter(account common.Address) bool {
	s.mu.RLock()
	_, ok := s.minters[account]
	s.mu.RUnlock()
	return ok
}

// Minters lists the accounts holding the minter role.
func (s *ShareToken) Minters() []common.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.Address, 0, len(s.minters))
	for account := range s.minters {
		out = append(out, account)
	}
	return out
}

// Minter returns the share ledger as seen by the given caller.
func (s *ShareToken) Minter(caller common.Address) *ShareAccount {
	return &ShareAccount{share: s, caller: caller}
}

// ShareAccount issues and redeems shares on behalf of a caller. Like
// PoolAccount it does not wait on the Book's transaction gate.
type ShareAccount struct {
	share  *ShareToken
	caller common.Address
}

func (a *ShareAccount) authorize() error {
	if !a.share.IsMinter(a.caller) {
		return fmt.Errorf("%w: %s is not a minter of %s", ErrUnauthorized, a.caller.Hex(), a.share.Symbol())
	}
	return nil
}

func (a *ShareAccount) Mint(to common.Address, amount *uint256.Int) error {
	if err := a.authorize(); err != nil {
		return err
	}
	book := a.share.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.mint(a.share.Address(), to, amount)
}

func (a *ShareAccount) Burn(from common.Address, amount *uint256.Int) error {
	if err := a.authorize(); err != nil {
		return err
	}
	book := a.share.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.burn(a.share.Address(), from, amount)
}

func (a *ShareAccount) TotalSupply() *uint256.Int {
	book := a.share.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.supply(a.share.Address())
}

func (a *ShareAccount) BalanceOf(account common.Address) *uint256.Int {
	book := a.share.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.balance(a.share.Address(), account)
}
