package recorder

import (
	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/optimizer"
)

// Market identifies the data a run was evaluated on.
type Market struct {
	Symbol   string
	Interval string
	Bars     int
}

// Recorder persists backtests and sweeps for later analysis.
type Recorder interface {
	RecordBacktest(m Market, result *backtest.RunResult) (string, error)
	RecordSweep(m Market, report *optimizer.Report) error
	Close() error
}
