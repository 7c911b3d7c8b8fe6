package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/launchpad/internal/domain"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, StoreBadger, cfg.Store.Driver)
	assert.Equal(t, AMMLocal, cfg.AMM.Driver)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)

	params, err := cfg.LaunchParams()
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", params.CreationFee.String())
	assert.Equal(t, "800000", params.Curve.Cap.String())
	assert.Equal(t, uint32(100), params.Curve.FeeBps)
	assert.NoError(t, params.Validate())

	burn, err := cfg.BurnAddress()
	require.NoError(t, err)
	assert.Equal(t, domain.BurnAddress, burn)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := writeConfig(t, "launchpad.yaml", `
server:
  addr: ":9000"
  shutdown_timeout: 3s
store:
  driver: sqlite
  path: /tmp/launchpad.db
launch:
  funding_goal: "90000"
  base_price: "0"
  slope_numerator: "1"
  slope_denominator: "1000000000000"
amm:
  driver: remote
  url: http://amm.local:8545
`)
	t.Setenv("LAUNCHPAD_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LAUNCHPAD_LAUNCH_FEE_BPS", "50")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, uint32(50), cfg.Launch.FeeBps)
	assert.Equal(t, "http://amm.local:8545", cfg.AMM.URL)
}

func TestValidate(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store.Driver = "postgres" }},
		{"missing store path", func(c *Config) { c.Store.Path = "" }},
		{"remote without url", func(c *Config) { c.AMM.Driver = AMMRemote }},
		{"remote with ws url", func(c *Config) { c.AMM.Driver, c.AMM.URL = AMMRemote, "ws://amm" }},
		{"fee too high", func(c *Config) { c.Launch.FeeBps = 10_000 }},
		{"zero buffer", func(c *Config) { c.Events.BufferSize = 0 }},
		{"journal without flush", func(c *Config) { c.Events.JournalFile, c.Events.JournalFlush = "trades.csv", 0 }},
		{"bad amount", func(c *Config) { c.Launch.CurveCap = "1.5" }},
		{"zero denominator", func(c *Config) { c.Launch.SlopeDenominator = "0" }},
		{"goal beyond curve", func(c *Config) { c.Launch.FundingGoal = "1000000000000000000000000000" }},
		{"bad program id", func(c *Config) { c.Launch.ProgramID = "nope" }},
		{"bad burn address", func(c *Config) { c.Launch.BurnAddress = "0x00" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base(t)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := base(t)
	cfg.Store.Driver, cfg.Store.Path = StoreMemory, ""
	assert.NoError(t, cfg.Validate())
}

func TestLoggerConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	lc := cfg.LoggerConfig()
	assert.Equal(t, "launchpad.log", lc.LogFile)
	assert.Equal(t, 100, lc.MaxSize)
	assert.False(t, lc.Development)
}
