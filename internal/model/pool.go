package model

// PoolSnapshot is the JSON view of a pair's identity and pool details.
type PoolSnapshot struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	AssetA      string `json:"asset_a"`
	AssetB      string `json:"asset_b"`
	ShareToken  string `json:"share_token"`
	FeeBps      uint16 `json:"fee_bps"`
	ReserveA    string `json:"reserve_a"`
	ReserveB    string `json:"reserve_b"`
	ShareSupply string `json:"share_supply"`
	Active      bool   `json:"active"`
}

// HoldingsRecord is the JSON view of one account's balances in a pair.
type HoldingsRecord struct {
	Account string `json:"account"`
	AssetA  string `json:"asset_a"`
	AssetB  string `json:"asset_b"`
	Shares  string `json:"shares"`
}
