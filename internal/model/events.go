package model

import "time"

const (
	EventMint = "mint"
	EventBurn = "burn"
	EventSwap = "swap"
)

// PairEvent records one committed state change of a pair. Amounts are
// decimal strings in base units.
type PairEvent struct {
	Pair        string    `json:"pair"`
	Sequence    uint64    `json:"sequence"`
	Kind        string    `json:"kind"`
	Account     string    `json:"account"`
	AmountA     string    `json:"amount_a,omitempty"`
	AmountB     string    `json:"amount_b,omitempty"`
	Shares      string    `json:"shares,omitempty"`
	InputAsset  string    `json:"input_asset,omitempty"`
	AmountIn    string    `json:"amount_in,omitempty"`
	AmountOut   string    `json:"amount_out,omitempty"`
	ReserveA    string    `json:"reserve_a"`
	ReserveB    string    `json:"reserve_b"`
	ShareSupply string    `json:"share_supply"`
	Timestamp   time.Time `json:"timestamp"`
}
