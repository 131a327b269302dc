// Package config loads swapd settings from flags, SWAPD_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Port               int
	Store              string
	DBPath             string
	PGDSN              string
	ExistentialDeposit uint64
	LogLevel           string
	AllowedOrigins     []string
	EventBuffer        int
	ShutdownTimeout    time.Duration
	AuditInterval      time.Duration
	LoadScenario       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SWAPD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("store", StoreMemory)
	v.SetDefault("db", "./data/swapd.db")
	v.SetDefault("existential-deposit", uint64(1))
	v.SetDefault("log-level", "info")
	v.SetDefault("allowed-origins", []string{"http://localhost:5173", "http://localhost:8080"})
	v.SetDefault("event-buffer", 1024)
	v.SetDefault("shutdown-timeout", 30*time.Second)
	v.SetDefault("audit-interval", time.Minute)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("swapd")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		Port:               v.GetInt("port"),
		Store:              strings.ToLower(v.GetString("store")),
		DBPath:             v.GetString("db"),
		PGDSN:              v.GetString("pg-dsn"),
		ExistentialDeposit: v.GetUint64("existential-deposit"),
		LogLevel:           v.GetString("log-level"),
		AllowedOrigins:     getStringSlice(v, "allowed-origins"),
		EventBuffer:        v.GetInt("event-buffer"),
		ShutdownTimeout:    v.GetDuration("shutdown-timeout"),
		AuditInterval:      v.GetDuration("audit-interval"),
		LoadScenario:       v.GetString("scenario"),
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail late, at first use.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("store %q requires pg-dsn", c.Store)
		}
	default:
		return fmt.Errorf("unknown store %q (want memory, sqlite or postgres)", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return cleanStrings(strings.Split(typed, ","))
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
