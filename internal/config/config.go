package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PAIR_FEE_BPS.
const EnvPrefix = "PAIR"

// newViper merges defaults, environment variables, bound flags, and an
// optional config file. Without cfgFile a config.* in the working directory
// is read when present.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func feeBps(v *viper.Viper, key string) (uint16, error) {
	raw := v.GetInt(key)
	if raw < 0 || raw > 0xffff {
		return 0, fmt.Errorf("%s out of range: %d", key, raw)
	}
	return uint16(raw), nil
}

func decimals(v *viper.Viper, key string) (uint8, error) {
	raw := v.GetInt(key)
	if raw < 0 || raw > 77 {
		return 0, fmt.Errorf("%s out of range: %d", key, raw)
	}
	return uint8(raw), nil
}
