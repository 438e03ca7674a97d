// Package config loads application configuration from a YAML file with
// environment variable overrides (STOCKBOOK_*).
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App struct {
		Env      string `mapstructure:"env"`
		LogLevel string `mapstructure:"log_level"`
	} `mapstructure:"app"`

	Postgres struct {
		DSN             string        `mapstructure:"dsn"`
		MaxConns        int32         `mapstructure:"max_conns"`
		MinConns        int32         `mapstructure:"min_conns"`
		MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	} `mapstructure:"postgres"`

	Ledger struct {
		// MaxRetries bounds the retry loop on transient append conflicts.
		MaxRetries int `mapstructure:"max_retries"`

		// EnforceNonNegative rejects movements that would drive a scope
		// balance below zero. Off by default: negative balances are data
		// to investigate, not writes to refuse.
		EnforceNonNegative bool `mapstructure:"enforce_non_negative"`
	} `mapstructure:"ledger"`

	Metrics struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"metrics"`
}

// Load reads configuration from path and applies defaults and env overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("STOCKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var c Config
	if err := v.ReadInConfig(); err != nil {
		return c, err
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

// Default returns configuration built purely from defaults and environment,
// for tools that run without a config file.
func Default() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STOCKBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("postgres.dsn", "postgres://localhost:5432/stockbook?sslmode=disable")
	v.SetDefault("postgres.max_conns", 25)
	v.SetDefault("postgres.min_conns", 5)
	v.SetDefault("postgres.max_conn_lifetime", time.Hour)
	v.SetDefault("ledger.max_retries", 3)
	v.SetDefault("ledger.enforce_non_negative", false)
	v.SetDefault("metrics.enabled", true)
}
