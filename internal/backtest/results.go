package backtest

import (
	"time"

	"github.com/jwtly10/crossbot/internal/position"
	"github.com/jwtly10/crossbot/internal/types"
)

// RunResult is the outcome of one backtest. Callers should treat it as
// read-only once returned.
type RunResult struct {
	Params         types.Params
	InitialEquity  float64
	FinalEquity    float64
	TradeCount     int
	PerformancePct float64

	// InsufficientData is set when fewer than LongWindow bars survived
	// warm-up. Such a result made no trade and is not a flat strategy.
	InsufficientData bool

	FinalState  position.State
	Trades      []position.Trade
	EquityCurve []EquityPoint

	stats *Statistics
}

type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
	InMarket  bool
}

// Active reports whether the strategy had enough data to be evaluated.
func (r *RunResult) Active() bool {
	return !r.InsufficientData
}

// ClosedTrades excludes a position still open at the end of the run.
func (r *RunResult) ClosedTrades() []position.Trade {
	out := make([]position.Trade, 0, len(r.Trades))
	for _, t := range r.Trades {
		if !t.Open {
			out = append(out, t)
		}
	}
	return out
}
