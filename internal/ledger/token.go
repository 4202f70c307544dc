package ledger

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Token is an ERC20-style fungible asset stored in a Book.
type Token struct {
	book    *Book
	address common.Address
	name    string
	symbol  string
}

func NewToken(book *Book, address common.Address, name, symbol string) *Token {
	return &Token{book: book, address: address, name: name, symbol: symbol}
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }

func (t *Token) BalanceOf(account common.Address) *uint256.Int {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.book.balance(t.address, account)
}

func (t *Token) TotalSupply() *uint256.Int {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.book.supply(t.address)
}

func (t *Token) Allowance(owner, spender common.Address) *uint256.Int {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.book.allowance(t.address, owner, spender)
}

// Mint credits new units to an account. It has no access control; it is the
// faucet used to fund accounts.
func (t *Token) Mint(to common.Address, amount *uint256.Int) error {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.book.mint(t.address, to, amount)
}

// Approve sets the amount spender may pull from owner.
func (t *Token) Approve(owner, spender common.Address, amount *uint256.Int) {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	t.book.setAllowance(t.address, owner, spender, amount.Clone())
}

// Transfer moves amount from one account to another.
func (t *Token) Transfer(from, to common.Address, amount *uint256.Int) error {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.book.move(t.address, from, to, amount)
}

// TransferFrom moves amount on behalf of owner and consumes the spender's
// allowance.
func (t *Token) TransferFrom(spender, owner, to common.Address, amount *uint256.Int) error {
	t.book.lockDirect()
	defer t.book.unlockDirect()
	return t.transferFrom(spender, owner, to, amount)
}

// transferFrom runs with b.mu held.
func (t *Token) transferFrom(spender, owner, to common.Address, amount *uint256.Int) error {
	allowed := t.book.allowance(t.address, owner, spender)
	if allowed.Lt(amount) {
		return fmt.Errorf("%w: %s allows %s %s, needs %s", ErrInsufficientAllowance, owner.Hex(), spender.Hex(), allowed.Dec(), amount.Dec())
	}
	if err := t.book.move(t.address, owner, to, amount); err != nil {
		return err
	}
	t.book.setAllowance(t.address, owner, spender, allowed.Sub(allowed, amount))
	return nil
}

// Spender returns the view of the token a pool uses to pull and push funds.
func (t *Token) Spender(pool common.Address) *PoolAccount {
	return &PoolAccount{token: t, pool: pool}
}

// PoolAccount is a token bound to the pool account that holds its reserves.
// Its calls do not wait on the Book's transaction gate, so inside a
// transaction only its holder may use them.
type PoolAccount struct {
	token *Token
	pool  common.Address
}

// TransferIn pulls amount from an owner who approved the pool.
func (p *PoolAccount) TransferIn(from common.Address, amount *uint256.Int) error {
	book := p.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return p.token.transferFrom(p.pool, from, p.pool, amount)
}

// TransferOut pays amount from the pool to an account.
func (p *PoolAccount) TransferOut(to common.Address, amount *uint256.Int) error {
	book := p.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.move(p.token.address, p.pool, to, amount)
}

func (p *PoolAccount) BalanceOf(account common.Address) *uint256.Int {
	book := p.token.book
	book.mu.Lock()
	defer book.mu.Unlock()
	return book.balance(p.token.address, account)
}
