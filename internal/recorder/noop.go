package recorder

import (
	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/optimizer"
)

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordBacktest(_ Market, _ *backtest.RunResult) (string, error) {
	return "", nil
}
func (n *NoopRecorder) RecordSweep(_ Market, _ *optimizer.Report) error { return nil }
func (n *NoopRecorder) Close() error                                    { return nil }
