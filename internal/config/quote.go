package config

import (
	"time"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command. Reserves come from
// the RPC pair when Pair is set and from ReserveA/ReserveB otherwise.
type QuoteConfig struct {
	RPCURL       string
	Pair         string
	Block        uint64
	ReserveA     string
	ReserveB     string
	Supply       string
	Kind         string
	Amount       string
	AmountB      string
	Input        string
	FeeBps       uint16
	DecimalsA    uint8
	DecimalsB    uint8
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"kind":          "swap",
		"input":         "A",
		"fee-bps":       30,
		"decimals-a":    18,
		"decimals-b":    18,
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return QuoteConfig{}, err
	}
	fee, err := feeBps(v, "fee-bps")
	if err != nil {
		return QuoteConfig{}, err
	}
	decA, err := decimals(v, "decimals-a")
	if err != nil {
		return QuoteConfig{}, err
	}
	decB, err := decimals(v, "decimals-b")
	if err != nil {
		return QuoteConfig{}, err
	}

	cfg := QuoteConfig{
		RPCURL:       v.GetString("rpc"),
		Pair:         v.GetString("pair"),
		Block:        v.GetUint64("block"),
		ReserveA:     v.GetString("reserve-a"),
		ReserveB:     v.GetString("reserve-b"),
		Supply:       v.GetString("supply"),
		Kind:         v.GetString("kind"),
		Amount:       v.GetString("amount"),
		AmountB:      v.GetString("amount-b"),
		Input:        v.GetString("input"),
		FeeBps:       fee,
		DecimalsA:    decA,
		DecimalsB:    decB,
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
