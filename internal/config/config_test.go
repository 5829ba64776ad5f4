package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.Market.BaseURL)
	assert.Equal(t, "usd", cfg.Market.Currency)
	assert.Equal(t, 10, cfg.Market.PageSize)
	assert.Equal(t, 200, cfg.Market.LookbackDays)
	assert.Equal(t, 60*time.Second, cfg.Interval())
	assert.Equal(t, "market_cap_desc", cfg.Refresh.Order)
	assert.Equal(t, "30d", cfg.Refresh.Timeframe)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
market:
  currency: eur
  page_size: 25
refresh:
  interval_seconds: 120
  order: volume_desc
`), 0644))

	t.Setenv("MARKET_CURRENCY", "gbp")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gbp", cfg.Market.Currency) // env beats file
	assert.Equal(t, 25, cfg.Market.PageSize)
	assert.Equal(t, 120*time.Second, cfg.Interval())
	assert.Equal(t, "volume_desc", cfg.Refresh.Order)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	cfg.Refresh.Order = "alphabetical"
	assert.Error(t, cfg.Validate())

	cfg.Refresh.Order = "market_cap_desc"
	cfg.Refresh.IntervalSeconds = 1
	assert.Error(t, cfg.Validate())

	cfg.Refresh.IntervalSeconds = 60
	cfg.Market.PageSize = 0
	assert.Error(t, cfg.Validate())
}
