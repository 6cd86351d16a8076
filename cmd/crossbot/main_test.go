package main

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jwtly10/crossbot/internal/config"
	"github.com/jwtly10/crossbot/internal/feed"
	"github.com/jwtly10/crossbot/internal/optimizer"
	"github.com/jwtly10/crossbot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make(types.Series, 300)
	for i := range bars {
		c := 100 + 0.05*float64(i) + 8*math.Sin(float64(i)/6) + 3*math.Sin(float64(i)/1.7)
		bars[i] = types.Bar{Timestamp: start.Add(time.Duration(i) * 4 * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	csvPath := filepath.Join(dir, "bars.csv")
	f, err := os.Create(csvPath)
	require.NoError(t, err)
	require.NoError(t, feed.WriteCSV(f, bars))
	require.NoError(t, f.Close())

	cfg, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.Data.CSVPath = csvPath
	cfg.Database.SQLitePath = filepath.Join(dir, "crossbot.db")
	cfg.Backtest.Params = types.Params{ShortWindow: 3, LongWindow: 10, RSIOverbought: 70, BollingerPeriod: 5, BollingerStdDev: 1, TrailingStop: 0.05}
	cfg.Optimizer.Grid = optimizer.Grid{
		ShortWindows:     []int{3, 5},
		LongWindows:      []int{5, 10},
		RSIOverbought:    []float64{70},
		BollingerPeriods: []int{5},
		BollingerStdDevs: []float64{1},
		TrailingStops:    []float64{0.05},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func rows(t *testing.T, path, table string) int {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestRun_Backtest(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, run(context.Background(), cfg, "backtest"))
	assert.Equal(t, 1, rows(t, cfg.Database.SQLitePath, "backtests"))
}

func TestRun_Optimize(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, run(context.Background(), cfg, "optimize"))
	assert.Equal(t, 1, rows(t, cfg.Database.SQLitePath, "sweeps"))
	assert.Equal(t, 3, rows(t, cfg.Database.SQLitePath, "sweep_results"))
}

func TestRun_UnknownMode(t *testing.T) {
	assert.ErrorContains(t, run(context.Background(), testConfig(t), "live"), "unknown mode")
}

func TestRun_MissingCSV(t *testing.T) {
	cfg := testConfig(t)
	cfg.Data.CSVPath = filepath.Join(t.TempDir(), "nope.csv")
	assert.ErrorContains(t, run(context.Background(), cfg, "backtest"), "load bars")
}
