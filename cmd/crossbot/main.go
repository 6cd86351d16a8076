package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/config"
	"github.com/jwtly10/crossbot/internal/feed"
	"github.com/jwtly10/crossbot/internal/indicators"
	"github.com/jwtly10/crossbot/internal/logging"
	"github.com/jwtly10/crossbot/internal/optimizer"
	"github.com/jwtly10/crossbot/internal/recorder"
	"github.com/jwtly10/crossbot/internal/tradingview"
	"github.com/jwtly10/crossbot/internal/types"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	flag.StringVar(&cfgPath, "config", cfgPath, "path to the YAML config")
	mode := flag.String("mode", "backtest", "backtest or optimize")
	top := flag.Int("top", 0, "number of ranked results to print (overrides optimizer.top_k)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}
	if *top > 0 {
		cfg.Optimizer.TopK = *top
	}
	level := cfg.Log.Level
	if os.Getenv("DEBUG_TOPICS") != "" {
		level = "debug"
	}
	logging.Configure(os.Stderr, level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *mode); err != nil {
		slog.Error("Run failed", "mode", *mode, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, mode string) error {
	if mode != "backtest" && mode != "optimize" {
		return fmt.Errorf("unknown mode %q", mode)
	}

	bars, err := loadBars(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load bars: %w", err)
	}
	slog.Info("Loaded bars", "count", len(bars), "from", bars[0].Timestamp, "to", bars[len(bars)-1].Timestamp)

	rec := openRecorder(cfg)
	defer rec.Close()

	market := recorder.Market{Symbol: cfg.Data.Symbol, Interval: cfg.Data.Interval, Bars: len(bars)}
	if cfg.Data.CSVPath != "" {
		market.Symbol = cfg.Data.CSVPath
		market.Interval = ""
	}

	if mode == "optimize" {
		return runOptimize(ctx, cfg, bars, rec, market)
	}
	return runBacktest(cfg, bars, rec, market)
}

func loadBars(ctx context.Context, cfg *config.Config) (types.Series, error) {
	if cfg.Data.CSVPath != "" {
		return feed.LoadCSV(cfg.Data.CSVPath)
	}

	client := feed.NewClient(cfg.Data.BaseURL, feed.RetryPolicy{
		MaxAttempts:    cfg.Data.Retry.MaxAttempts,
		InitialBackoff: cfg.Data.Retry.InitialBackoff,
		MaxBackoff:     cfg.Data.Retry.MaxBackoff,
	})
	return client.FetchBars(ctx, cfg.Data.Symbol, cfg.Data.Interval, cfg.Data.Limit)
}

func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		slog.Warn("Init sqlite recorder failed, using noop", "error", err)
		return recorder.NewNoopRecorder()
	}
	return sr
}

func runBacktest(cfg *config.Config, bars types.Series, rec recorder.Recorder, market recorder.Market) error {
	params := cfg.Backtest.Params
	slog.Info("Running backtest", "params", params.String())

	enriched := indicators.Enrich(bars, params, cfg.Backtest.RSIPeriod)
	result := backtest.Run(enriched, params, cfg.Backtest.InitialEquity)
	if result.InsufficientData {
		slog.Warn("Not enough bars after indicator warm-up", "bars", len(bars), "long_window", params.LongWindow)
	}

	fmt.Printf("\nFinal equity: $%.2f | Trades: %d | Performance: %.2f%% | State: %s\n",
		result.FinalEquity, result.TradeCount, result.PerformancePct, result.FinalState)

	stats := result.Calculate()
	stats.Print()

	fmt.Println()
	result.PrintTradesBetween(len(result.Trades)-5, len(result.Trades))

	tradingview.DumpPineScript(result.Trades)

	id, err := rec.RecordBacktest(market, result)
	if err != nil {
		slog.Warn("Failed to record backtest", "error", err)
	} else if id != "" {
		slog.Info("Recorded backtest", "id", id)
	}
	return nil
}

func runOptimize(ctx context.Context, cfg *config.Config, bars types.Series, rec recorder.Recorder, market recorder.Market) error {
	opt := optimizer.New(cfg.Optimizer.Grid, optimizer.Options{
		InitialEquity: cfg.Backtest.InitialEquity,
		RSIPeriod:     cfg.Backtest.RSIPeriod,
		Workers:       cfg.Optimizer.Workers,
		OnProgress: func(done, total int, r *backtest.RunResult) {
			slog.Info(fmt.Sprintf("Tested combination %d/%d", done, total),
				"params", r.Params.String(), "final_equity", r.FinalEquity)
		},
	})

	report, err := opt.Run(ctx, bars)
	if err != nil {
		return err
	}
	report.Print(os.Stdout, cfg.Optimizer.TopK)

	if err := rec.RecordSweep(market, report); err != nil {
		slog.Warn("Failed to record sweep", "id", report.ID, "error", err)
	}
	return nil
}
