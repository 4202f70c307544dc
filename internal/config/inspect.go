package config

import (
	"github.com/spf13/pflag"
)

// InspectConfig holds configuration for the inspect command.
type InspectConfig struct {
	StateFile string
	PGDSN     string
	PairName  string
	Account   string
	LogLevel  string
}

// LoadInspect merges config file, environment variables, and flags into InspectConfig.
func LoadInspect(cfgFile string, flags *pflag.FlagSet) (InspectConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"pair-name": "Token A - Token B Pair",
	})
	if err != nil {
		return InspectConfig{}, err
	}

	return InspectConfig{
		StateFile: v.GetString("state-file"),
		PGDSN:     v.GetString("pg-dsn"),
		PairName:  v.GetString("pair-name"),
		Account:   v.GetString("account"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}
