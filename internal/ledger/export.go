package ledger

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"remediPair/internal/model"
)

// Export returns every non-zero supply, balance and allowance in a stable order.
func (b *Book) Export() ([]model.SupplyEntry, []model.BalanceEntry, []model.AllowanceEntry) {
	b.lockDirect()
	defer b.unlockDirect()

	supplies := make([]model.SupplyEntry, 0, len(b.supplies))
	for token, amount := range b.supplies {
		supplies = append(supplies, model.SupplyEntry{Token: token.Hex(), Amount: amount.Dec()})
	}
	sort.Slice(supplies, func(i, j int) bool { return supplies[i].Token < supplies[j].Token })

	balances := make([]model.BalanceEntry, 0, len(b.balances))
	for key, amount := range b.balances {
		balances = append(balances, model.BalanceEntry{
			Token:   key.token.Hex(),
			Account: key.account.Hex(),
			Amount:  amount.Dec(),
		})
	}
	sort.Slice(balances, func(i, j int) bool {
		if balances[i].Token != balances[j].Token {
			return balances[i].Token < balances[j].Token
		}
		return balances[i].Account < balances[j].Account
	})

	allowances := make([]model.AllowanceEntry, 0, len(b.allowances))
	for key, amount := range b.allowances {
		allowances = append(allowances, model.AllowanceEntry{
			Token:   key.token.Hex(),
			Owner:   key.owner.Hex(),
			Spender: key.spender.Hex(),
			Amount:  amount.Dec(),
		})
	}
	sort.Slice(allowances, func(i, j int) bool {
		a, c := allowances[i], allowances[j]
		if a.Token != c.Token {
			return a.Token < c.Token
		}
		if a.Owner != c.Owner {
			return a.Owner < c.Owner
		}
		return a.Spender < c.Spender
	})

	return supplies, balances, allowances
}

// Import replaces the contents of the book.
func (b *Book) Import(supplies []model.SupplyEntry, balances []model.BalanceEntry, allowances []model.AllowanceEntry) error {
	nextSupplies := make(map[common.Address]*uint256.Int, len(supplies))
	for _, entry := range supplies {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return fmt.Errorf("supply token: %w", err)
		}
		amount, err := uint256.FromDecimal(entry.Amount)
		if err != nil {
			return fmt.Errorf("supply %s: %w", entry.Token, err)
		}
		if !amount.IsZero() {
			nextSupplies[token] = amount
		}
	}

	nextBalances := make(map[balanceKey]*uint256.Int, len(balances))
	for _, entry := range balances {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return fmt.Errorf("balance token: %w", err)
		}
		account, err := parseAddress(entry.Account)
		if err != nil {
			return fmt.Errorf("balance account: %w", err)
		}
		amount, err := uint256.FromDecimal(entry.Amount)
		if err != nil {
			return fmt.Errorf("balance %s/%s: %w", entry.Token, entry.Account, err)
		}
		if !amount.IsZero() {
			nextBalances[balanceKey{token, account}] = amount
		}
	}

	nextAllowances := make(map[allowanceKey]*uint256.Int, len(allowances))
	for _, entry := range allowances {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return fmt.Errorf("allowance token: %w", err)
		}
		owner, err := parseAddress(entry.Owner)
		if err != nil {
			return fmt.Errorf("allowance owner: %w", err)
		}
		spender, err := parseAddress(entry.Spender)
		if err != nil {
			return fmt.Errorf("allowance spender: %w", err)
		}
		amount, err := uint256.FromDecimal(entry.Amount)
		if err != nil {
			return fmt.Errorf("allowance %s: %w", entry.Token, err)
		}
		if !amount.IsZero() {
			nextAllowances[allowanceKey{token, owner, spender}] = amount
		}
	}

	b.lockDirect()
	b.supplies = nextSupplies
	b.balances = nextBalances
	b.allowances = nextAllowances
	b.unlockDirect()
	return nil
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
