package optimizer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/indicators"
	"github.com/jwtly10/crossbot/internal/logging"
	"github.com/jwtly10/crossbot/internal/types"
)

var optLog = logging.New("optimizer")

// ProgressFunc is called once per finished run. Calls are serialised.
type ProgressFunc func(done, total int, result *backtest.RunResult)

type Options struct {
	InitialEquity float64
	RSIPeriod     int
	// Workers bounds concurrent runs. Zero means GOMAXPROCS.
	Workers    int
	OnProgress ProgressFunc
}

type Optimizer struct {
	grid Grid
	opts Options
}

func New(grid Grid, opts Options) *Optimizer {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = indicators.DefaultRSIPeriod
	}
	return &Optimizer{grid: grid, opts: opts}
}

// Evaluate enriches an independent copy of series for params and backtests it.
func Evaluate(series types.Series, params types.Params, initialEquity float64, rsiPeriod int) *backtest.RunResult {
	enriched := indicators.Enrich(series, params, rsiPeriod)
	return backtest.Run(enriched, params, initialEquity)
}

// Run backtests every valid grid combination against series and returns
// the ranked report. Runs are independent and may execute in parallel;
// series is only read.
func (o *Optimizer) Run(ctx context.Context, series types.Series) (*Report, error) {
	if err := o.grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}

	valid, skipped := o.grid.Valid()
	report := &Report{
		ID:            uuid.NewString(),
		InitialEquity: o.opts.InitialEquity,
		Evaluated:     len(valid),
		Skipped:       skipped,
	}

	slog.Info("Starting parameter sweep", "id", report.ID, "combinations", o.grid.Size(), "valid", len(valid), "skipped", len(skipped), "workers", o.opts.Workers, "bars", len(series))

	results := make([]*backtest.RunResult, len(valid))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers)
	for i, params := range valid {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := Evaluate(series, params, o.opts.InitialEquity, o.opts.RSIPeriod)
			results[i] = r

			if r.InsufficientData {
				optLog.Warn("Combination had insufficient data", "index", i, "params", params.String(), "bars", len(series))
			} else {
				optLog.Debug("Combination tested", "index", i, "params", params.String(), "final_equity", r.FinalEquity, "trades", r.TradeCount)
			}

			mu.Lock()
			done++
			if o.opts.OnProgress != nil {
				o.opts.OnProgress(done, len(valid), r)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s cancelled: %w", report.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sweep %s cancelled: %w", report.ID, err)
	}

	report.Results = Rank(results)

	if best, ok := report.Best(); ok {
		slog.Info("Parameter sweep complete", "id", report.ID, "best", best.String(), "final_equity", report.Results[0].FinalEquity)
	} else {
		slog.Warn("Parameter sweep produced no active result", "id", report.ID, "evaluated", report.Evaluated)
	}

	return report, nil
}
