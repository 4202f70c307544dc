package ledger

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

type journalEntry interface {
	revert(b *Book)
}

type balanceChange struct {
	key     balanceKey
	prev    *uint256.Int
	existed bool
}

func (c balanceChange) revert(b *Book) {
	if !c.existed {
		delete(b.balances, c.key)
		return
	}
	b.balances[c.key] = c.prev
}

type allowanceChange struct {
	key     allowanceKey
	prev    *uint256.Int
	existed bool
}

func (c allowanceChange) revert(b *Book) {
	if !c.existed {
		delete(b.allowances, c.key)
		return
	}
	b.allowances[c.key] = c.prev
}

type supplyChange struct {
	token   common.Address
	prev    *uint256.Int
	existed bool
}

func (c supplyChange) revert(b *Book) {
	if !c.existed {
		delete(b.supplies, c.token)
		return
	}
	b.supplies[c.token] = c.prev
}
