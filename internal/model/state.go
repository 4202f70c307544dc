package model

// PoolState is everything needed to rebuild a pair and its ledgers.
type PoolState struct {
	Pair       PoolSnapshot     `json:"pair"`
	Tokens     []TokenMeta      `json:"tokens"`
	Supplies   []SupplyEntry    `json:"supplies"`
	Balances   []BalanceEntry   `json:"balances"`
	Allowances []AllowanceEntry `json:"allowances"`
	Minters    []string         `json:"minters"`
	Sequence   uint64           `json:"sequence"`
	UpdatedAt  string           `json:"updated_at"`
}

// SupplyEntry is the total supply of a token.
type SupplyEntry struct {
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

// BalanceEntry is a non-zero token balance.
type BalanceEntry struct {
	Token   string `json:"token"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// AllowanceEntry is a non-zero approval.
type AllowanceEntry struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}
