package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/config"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int("port", 8080, "")
	fs.String("store", "memory", "")
	fs.String("pg-dsn", "", "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, config.StoreMemory, cfg.Store)
	assert.Equal(t, uint64(1), cfg.ExistentialDeposit)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, time.Minute, cfg.AuditInterval)
	assert.Len(t, cfg.AllowedOrigins, 2)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SWAPD_PORT", "9000")
	t.Setenv("SWAPD_LOG_LEVEL", "debug")
	t.Setenv("SWAPD_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--port=9100"}))

	cfg, err := config.Load("", fs)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swapd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: sqlite\ndb: /tmp/x.db\nexistential-deposit: 10\n"), 0o600))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, config.StoreSQLite, cfg.Store)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, uint64(10), cfg.ExistentialDeposit)
}

func TestLoad_Validation(t *testing.T) {
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--store=postgres"}))
	_, err := config.Load("", fs)
	assert.ErrorContains(t, err, "pg-dsn")

	fs = newFlags()
	require.NoError(t, fs.Parse([]string{"--store=redis"}))
	_, err = config.Load("", fs)
	assert.ErrorContains(t, err, "unknown store")
}
