/*
Package config loads application configuration through viper.

Precedence: defaults < optional compta.yaml < COMPTA_* environment
variables. The matcher scoring constants are configuration, not code: they
are empirical tuning values, and deployments adjust them without a rebuild.
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/atlas/compta-engine/compta"
	"github.com/atlas/compta-engine/reconcile"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	DB      DBConfig      `mapstructure:"db"`
	VAT     VATConfig     `mapstructure:"vat"`
	Matcher MatcherConfig `mapstructure:"matcher"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type VATConfig struct {
	Regime string `mapstructure:"regime"` // "accrual" or "cash"
}

type MatcherConfig struct {
	ExactAmountWeight float64 `mapstructure:"exact_amount_weight"`
	ReferenceWeight   float64 `mapstructure:"reference_weight"`
	DateWeight        float64 `mapstructure:"date_weight"`
	Threshold         float64 `mapstructure:"threshold"`
	DateWindowDays    int     `mapstructure:"date_window_days"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode"` // "debug" or "production"
}

// Load reads configuration. path may be empty, in which case compta.yaml
// is looked up in the working directory and simply skipped when absent.
func Load(path string) (Config, error) {
	v := viper.New()

	defaults := reconcile.DefaultParams()
	v.SetDefault("server.port", 8080)
	v.SetDefault("db.path", "compta.db")
	v.SetDefault("vat.regime", string(compta.RegimeAccrual))
	v.SetDefault("matcher.exact_amount_weight", defaults.ExactAmountWeight)
	v.SetDefault("matcher.reference_weight", defaults.ReferenceWeight)
	v.SetDefault("matcher.date_weight", defaults.DateWeight)
	v.SetDefault("matcher.threshold", defaults.Threshold)
	v.SetDefault("matcher.date_window_days", defaults.DateWindowDays)
	v.SetDefault("log.mode", "production")

	v.SetEnvPrefix("COMPTA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("compta")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// Regime returns the typed VAT regime, defaulting to accrual on anything
// unrecognized.
func (c Config) Regime() compta.VATRegime {
	if c.VAT.Regime == string(compta.RegimeCashBasis) {
		return compta.RegimeCashBasis
	}
	return compta.RegimeAccrual
}

// MatcherParams converts the configured weights into reconcile.Params.
func (c Config) MatcherParams() reconcile.Params {
	return reconcile.Params{
		ExactAmountWeight: c.Matcher.ExactAmountWeight,
		ReferenceWeight:   c.Matcher.ReferenceWeight,
		DateWeight:        c.Matcher.DateWeight,
		Threshold:         c.Matcher.Threshold,
		DateWindowDays:    c.Matcher.DateWindowDays,
	}
}
