package backtest

import (
	"log/slog"

	"github.com/jwtly10/crossbot/internal/position"
	"github.com/jwtly10/crossbot/internal/types"
)

// Engine replays one bar series. Bars must already carry the indicator
// columns for the parameters passed to Run.
type Engine struct {
	Bars          types.Series
	initialEquity float64
}

func NewEngine(bars types.Series, initialEquity float64) *Engine {
	return &Engine{
		Bars:          bars,
		initialEquity: initialEquity,
	}
}

// Run is shorthand for NewEngine(series, initialEquity).Run(params).
func Run(series types.Series, params types.Params, initialEquity float64) *RunResult {
	return NewEngine(series, initialEquity).Run(params)
}

// Run simulates the strategy over the engine's bars. It never mutates the
// bars and holds no state between calls, so the same inputs always produce
// the same result.
func (e *Engine) Run(params types.Params) *RunResult {
	results := &RunResult{
		Params:        params,
		InitialEquity: e.initialEquity,
		FinalEquity:   e.initialEquity,
		FinalState:    position.FLAT,
		Trades:        []position.Trade{},
	}

	valid := e.Bars.TrimWarmup(types.RequiredIndicators...)
	if len(valid) < params.LongWindow || len(valid) < 2 {
		slog.Debug("Not enough data to run backtest", "valid_bars", len(valid), "total_bars", len(e.Bars), "required", params.LongWindow)
		results.InsufficientData = true
		return results
	}

	slog.Debug("Starting backtest", "initial_equity", e.initialEquity, "valid_bars", len(valid), "params", params.String())

	m := position.New(params, e.initialEquity)
	results.EquityCurve = make([]EquityPoint, 0, len(valid))
	results.EquityCurve = append(results.EquityCurve, EquityPoint{Timestamp: valid[0].Timestamp, Equity: e.initialEquity})

	for i := 1; i < len(valid); i++ {
		d := m.Step(valid[i-1], valid[i])
		if d.Action == position.EXIT && d.Trade != nil {
			results.Trades = append(results.Trades, *d.Trade)
		}
		results.EquityCurve = append(results.EquityCurve, EquityPoint{
			Timestamp: valid[i].Timestamp,
			Equity:    m.Equity(),
			InMarket:  m.InPosition(),
		})
	}

	// An open position is valued at the last close, not sold.
	last := valid[len(valid)-1]
	m.MarkToMarket(last)
	if open, ok := m.OpenTrade(last); ok {
		results.Trades = append(results.Trades, open)
	}

	results.FinalEquity = m.Equity()
	results.TradeCount = m.TradeCount()
	results.FinalState = m.State()
	results.PerformancePct = performancePct(results.FinalEquity, e.initialEquity)

	slog.Debug("Backtest complete", "final_equity", results.FinalEquity, "trades", results.TradeCount, "performance_pct", results.PerformancePct)

	return results
}

func performancePct(final, initial float64) float64 {
	if initial == 0 {
		return 0
	}
	return (final/initial - 1) * 100
}
