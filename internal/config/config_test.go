package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwtly10/crossbot/internal/optimizer"
	"github.com/jwtly10/crossbot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Data.Symbol)
	assert.Equal(t, "4h", cfg.Data.Interval)
	assert.Equal(t, 750, cfg.Data.Limit)
	assert.Equal(t, 1000.0, cfg.Backtest.InitialEquity)
	assert.Equal(t, types.DefaultParams(), cfg.Backtest.Params)
	assert.Equal(t, optimizer.DefaultGrid(), cfg.Optimizer.Grid)
	assert.Equal(t, 5, cfg.Optimizer.TopK)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
data:
  csv_path: bars.csv
  retry:
    max_attempts: 5
    initial_backoff: 250ms
backtest:
  initial_equity: 5000
  params:
    short_window: 10
    long_window: 30
    rsi_overbought: 70
    bollinger_period: 20
    bollinger_stddev: 2.5
    trailing_stop: 0.05
optimizer:
  workers: 2
  grid:
    short_windows: [5, 10]
    long_windows: [20]
    rsi_overbought: [70]
    bollinger_periods: [20]
    bollinger_stddevs: [2]
    trailing_stops: [0.05]
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bars.csv", cfg.Data.CSVPath)
	assert.Equal(t, 5, cfg.Data.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Data.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.Data.Retry.MaxBackoff)
	assert.Equal(t, 5000.0, cfg.Backtest.InitialEquity)
	assert.Equal(t, 10, cfg.Backtest.Params.ShortWindow)
	assert.Equal(t, 2.5, cfg.Backtest.Params.BollingerStdDev)
	assert.Equal(t, 2, cfg.Optimizer.Workers)
	assert.Equal(t, []int{5, 10}, cfg.Optimizer.Grid.ShortWindows)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CROSSBOT_SYMBOL", "BTCUSDT")
	t.Setenv("CROSSBOT_WORKERS", "3")
	t.Setenv("CROSSBOT_INITIAL_EQUITY", "250.5")
	t.Setenv("CROSSBOT_SQLITE_PATH", "/tmp/x.db")

	cfg, err := Load(writeConfig(t, "data:\n  symbol: ETHUSDT\n"))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Data.Symbol)
	assert.Equal(t, 3, cfg.Optimizer.Workers)
	assert.Equal(t, 250.5, cfg.Backtest.InitialEquity)
	assert.Equal(t, "/tmp/x.db", cfg.Database.SQLitePath)
}

func TestLoad_BadEnvValue(t *testing.T) {
	t.Setenv("CROSSBOT_WORKERS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "CROSSBOT_WORKERS")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "data: [unterminated"))
	assert.ErrorContains(t, err, "parse config")
}

func TestLoad_PartialGridIsKept(t *testing.T) {
	path := writeConfig(t, `
optimizer:
  grid:
    short_windows: [5, 10]
    long_windows: [30]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 10}, cfg.Optimizer.Grid.ShortWindows)
	assert.Equal(t, []int{30}, cfg.Optimizer.Grid.LongWindows)
	assert.Empty(t, cfg.Optimizer.Grid.TrailingStops)

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "rsi_overbought")
	assert.ErrorContains(t, err, "trailing_stops")
	assert.NotContains(t, err.Error(), "short_windows")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	cfg.Backtest.InitialEquity = -1
	cfg.Backtest.Params.ShortWindow = 100
	cfg.Optimizer.Grid.LongWindows = nil

	err = cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "initial_equity")
	assert.ErrorIs(t, err, types.ErrInvalidParams)
	assert.ErrorContains(t, err, "long_windows")
}
