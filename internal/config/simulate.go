package config

import (
	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	AssetAName   string
	AssetASymbol string
	AssetBName   string
	AssetBSymbol string
	FeeBps       uint16
	Input        string
	Results      string
	Events       string
	StateFile    string
	PGDSN        string
	Resume       bool
	MetricsOut   string
	LogLevel     string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"asset-a-name":   "Token A",
		"asset-a-symbol": "TKA",
		"asset-b-name":   "Token B",
		"asset-b-symbol": "TKB",
		"fee-bps":        30,
		"results":        "./data/results.jsonl",
		"events":         "./data/events.jsonl",
		"resume":         true,
	})
	if err != nil {
		return SimulateConfig{}, err
	}
	fee, err := feeBps(v, "fee-bps")
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		AssetAName:   v.GetString("asset-a-name"),
		AssetASymbol: v.GetString("asset-a-symbol"),
		AssetBName:   v.GetString("asset-b-name"),
		AssetBSymbol: v.GetString("asset-b-symbol"),
		FeeBps:       fee,
		Input:        v.GetString("in"),
		Results:      v.GetString("results"),
		Events:       v.GetString("events"),
		StateFile:    v.GetString("state-file"),
		PGDSN:        v.GetString("pg-dsn"),
		Resume:       v.GetBool("resume"),
		MetricsOut:   v.GetString("metrics-out"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
