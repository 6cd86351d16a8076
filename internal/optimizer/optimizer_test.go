package optimizer

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/indicators"
	"github.com/jwtly10/crossbot/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wave builds a trending, oscillating close series long enough to produce
// crossovers for small windows.
func wave(n int) types.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(types.Series, n)
	for i := range s {
		c := 100 + 0.05*float64(i) + 8*math.Sin(float64(i)/6) + 3*math.Sin(float64(i)/1.7)
		s[i] = types.Bar{Timestamp: start.Add(time.Duration(i) * 4 * time.Hour), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return s
}

func smallGrid() Grid {
	return Grid{
		ShortWindows:     []int{3, 5},
		LongWindows:      []int{5, 10},
		RSIOverbought:    []float64{70},
		BollingerPeriods: []int{5},
		BollingerStdDevs: []float64{1},
		TrailingStops:    []float64{0.05},
	}
}

func TestGrid_CombinationsOrderAndFilter(t *testing.T) {
	g := smallGrid()
	all := g.Combinations()
	require.Len(t, all, 4)
	assert.Equal(t, 3, all[0].ShortWindow)
	assert.Equal(t, 5, all[0].LongWindow)
	assert.Equal(t, 3, all[1].ShortWindow)
	assert.Equal(t, 10, all[1].LongWindow)
	assert.Equal(t, 5, all[2].ShortWindow)

	valid, skipped := g.Valid()
	assert.Len(t, valid, 3)
	require.Len(t, skipped, 1)
	assert.Equal(t, 5, skipped[0].ShortWindow)
	assert.Equal(t, 5, skipped[0].LongWindow)

	assert.Equal(t, 16, DefaultGrid().Size())
}

func TestGrid_ValidateEmptyField(t *testing.T) {
	g := smallGrid()
	g.TrailingStops = nil
	assert.ErrorContains(t, g.Validate(), "trailing_stops")
	assert.NoError(t, smallGrid().Validate())

	assert.False(t, g.Empty())
	assert.True(t, Grid{}.Empty())
}

func TestOptimizer_EvaluatesOnlyValidCombinations(t *testing.T) {
	calls := 0
	opt := New(smallGrid(), Options{
		InitialEquity: 1000,
		OnProgress: func(done, total int, _ *backtest.RunResult) {
			calls++
			assert.Equal(t, 3, total)
			assert.LessOrEqual(t, done, total)
		},
	})

	report, err := opt.Run(context.Background(), wave(200))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Evaluated)
	assert.Len(t, report.Results, 3)
	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, 3, calls)
	assert.NotEmpty(t, report.ID)

	for i := 1; i < len(report.Results); i++ {
		assert.GreaterOrEqual(t, report.Results[i-1].FinalEquity, report.Results[i].FinalEquity)
	}
	best, ok := report.Best()
	require.True(t, ok)
	assert.Equal(t, report.Results[0].Params, best)
}

func TestOptimizer_SingleCombinationMatchesDirectRun(t *testing.T) {
	series := wave(200)
	params := types.Params{ShortWindow: 3, LongWindow: 10, RSIOverbought: 70, BollingerPeriod: 5, BollingerStdDev: 1, TrailingStop: 0.05}

	report, err := New(SingleGrid(params), Options{InitialEquity: 1000, RSIPeriod: 14}).Run(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	direct := backtest.Run(indicators.Enrich(series, params, 14), params, 1000)
	assert.Equal(t, direct, report.Results[0])
}

func TestOptimizer_ParallelMatchesSequential(t *testing.T) {
	series := wave(300)
	grid := Grid{
		ShortWindows:     []int{2, 3, 5, 8},
		LongWindows:      []int{5, 10, 20},
		RSIOverbought:    []float64{60, 70, 80},
		BollingerPeriods: []int{5, 10},
		BollingerStdDevs: []float64{0.5, 1},
		TrailingStops:    []float64{0.02, 0.05},
	}

	seq, err := New(grid, Options{InitialEquity: 1000, Workers: 1}).Run(context.Background(), series)
	require.NoError(t, err)
	par, err := New(grid, Options{InitialEquity: 1000, Workers: 8}).Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, seq.Results, par.Results)
	assert.Equal(t, seq.Skipped, par.Skipped)
}

func TestOptimizer_DoesNotMutateSeries(t *testing.T) {
	series := wave(120)
	before := series.Clone()

	_, err := New(smallGrid(), Options{InitialEquity: 1000, Workers: 4}).Run(context.Background(), series)
	require.NoError(t, err)

	assert.Equal(t, before, series)
}

func TestOptimizer_InsufficientDataRanksLast(t *testing.T) {
	// With 20 bars a long window of 19 leaves only 2 bars after warm-up.
	series := wave(20)
	grid := Grid{
		ShortWindows:     []int{2},
		LongWindows:      []int{5, 19},
		RSIOverbought:    []float64{70},
		BollingerPeriods: []int{3},
		BollingerStdDevs: []float64{1},
		TrailingStops:    []float64{0.05},
	}

	report, err := New(grid, Options{InitialEquity: 1000, RSIPeriod: 3}).Run(context.Background(), series)
	require.NoError(t, err)
	require.Len(t, report.Results, 2)

	assert.True(t, report.Results[0].Active())
	assert.Equal(t, 5, report.Results[0].Params.LongWindow)
	assert.False(t, report.Results[1].Active())
	assert.Equal(t, 0, report.Results[1].TradeCount)
	assert.Equal(t, 1000.0, report.Results[1].FinalEquity)
}

func TestOptimizer_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(smallGrid(), Options{InitialEquity: 1000}).Run(ctx, wave(100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRank_StableAndActiveFirst(t *testing.T) {
	mk := func(eq float64, short int, insufficient bool) *backtest.RunResult {
		return &backtest.RunResult{FinalEquity: eq, Params: types.Params{ShortWindow: short}, InsufficientData: insufficient}
	}
	in := []*backtest.RunResult{
		mk(1000, 1, true),
		mk(900, 2, false),
		mk(1100, 3, false),
		mk(900, 4, false),
		mk(1000, 5, false),
	}

	ranked := Rank(in)

	got := make([]int, len(ranked))
	for i, r := range ranked {
		got[i] = r.Params.ShortWindow
	}
	assert.Equal(t, []int{3, 5, 2, 4, 1}, got)
	assert.Equal(t, 1, in[0].Params.ShortWindow, "input order is untouched")
}

func TestReport_TopBestAndPrint(t *testing.T) {
	r := &Report{ID: "abc"}
	_, ok := r.Best()
	assert.False(t, ok)
	assert.Empty(t, r.Top(5))

	r.Results = Rank([]*backtest.RunResult{
		{FinalEquity: 1200, PerformancePct: 20, TradeCount: 3, Params: types.DefaultParams()},
		{FinalEquity: 1000, InsufficientData: true},
	})
	assert.Len(t, r.Top(1), 1)
	assert.Len(t, r.Top(10), 2)

	var buf bytes.Buffer
	r.Print(&buf, 5)
	out := buf.String()
	assert.Contains(t, out, "#1: Equity: $1200.00 | Perf: 20.00%")
	assert.Contains(t, out, "insufficient data")
	assert.Contains(t, out, "short_window:     50")
	assert.Contains(t, out, "trailing_stop:    0.03")

	r.Results = []*backtest.RunResult{{FinalEquity: 1000, InsufficientData: true}}
	_, ok = r.Best()
	assert.False(t, ok, "a degenerate result is never recommended")
}
