package backtest

import (
	"fmt"
	"io"
	"os"
	"time"
)

type Statistics struct {
	// Basic
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	// P&L
	TotalPnL        float64
	TotalPnLPercent float64
	GrossProfit     float64
	GrossLoss       float64
	ProfitFactor    float64

	// Averages
	AvgWin        float64
	AvgLoss       float64
	ExpectedValue float64

	// Risk
	MaxDrawdown        float64
	MaxDrawdownPercent float64
	Exposure           float64 // share of bars spent in the market, 0..1

	// Duration
	AvgTradeDuration time.Duration
}

// Calculate derives summary statistics from the trade log and equity curve.
// A position still open at the end counts as a trade valued at the last close.
func (r *RunResult) Calculate() *Statistics {
	if r.stats != nil {
		return r.stats
	}

	stats := &Statistics{
		TotalTrades:     len(r.Trades),
		TotalPnL:        r.FinalEquity - r.InitialEquity,
		TotalPnLPercent: r.PerformancePct,
	}
	r.stats = stats

	// Drawdown and exposure come from the marked-to-market curve so that
	// losses inside an open position are counted.
	if len(r.EquityCurve) > 0 {
		peak := r.EquityCurve[0].Equity
		inMarket := 0
		for _, p := range r.EquityCurve {
			if p.Equity > peak {
				peak = p.Equity
			}
			dd := peak - p.Equity
			if dd > stats.MaxDrawdown {
				stats.MaxDrawdown = dd
				if peak > 0 {
					stats.MaxDrawdownPercent = dd / peak * 100
				}
			}
			if p.InMarket {
				inMarket++
			}
		}
		stats.Exposure = float64(inMarket) / float64(len(r.EquityCurve))
	}

	if len(r.Trades) == 0 {
		return stats
	}

	var totalWin, totalLoss float64
	var totalDuration time.Duration
	for _, trade := range r.Trades {
		if trade.PnL > 0 {
			stats.WinningTrades++
			totalWin += trade.PnL
		} else if trade.PnL < 0 {
			stats.LosingTrades++
			totalLoss += trade.PnL // Already negative
		}
		totalDuration += trade.ExitTime.Sub(trade.EntryTime)
	}

	stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades) * 100
	stats.GrossProfit = totalWin
	stats.GrossLoss = totalLoss

	if totalLoss != 0 {
		stats.ProfitFactor = totalWin / -totalLoss
	}
	if stats.WinningTrades > 0 {
		stats.AvgWin = totalWin / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLoss = totalLoss / float64(stats.LosingTrades)
	}
	stats.ExpectedValue = stats.TotalPnL / float64(stats.TotalTrades)
	stats.AvgTradeDuration = totalDuration / time.Duration(stats.TotalTrades)

	return stats
}

func (s *Statistics) Print() {
	s.Fprint(os.Stdout)
}

func (s *Statistics) Fprint(w io.Writer) {
	fmt.Fprintln(w, "\n=== Backtest Results ===")
	fmt.Fprintf(w, "Total Trades:     %d\n", s.TotalTrades)
	fmt.Fprintf(w, "Winning Trades:   %d (%.2f%%)\n", s.WinningTrades, s.WinRate)
	fmt.Fprintf(w, "Losing Trades:    %d\n\n", s.LosingTrades)

	fmt.Fprintf(w, "Total P&L:        $%.2f (%.2f%%)\n", s.TotalPnL, s.TotalPnLPercent)
	fmt.Fprintf(w, "Gross Profit:     $%.2f\n", s.GrossProfit)
	fmt.Fprintf(w, "Gross Loss:       $%.2f\n", s.GrossLoss)
	fmt.Fprintf(w, "Profit Factor:    %.2f\n\n", s.ProfitFactor)

	fmt.Fprintf(w, "Avg Win:          $%.2f\n", s.AvgWin)
	fmt.Fprintf(w, "Avg Loss:         $%.2f\n", s.AvgLoss)
	fmt.Fprintf(w, "Expected Value:   $%.2f per trade\n\n", s.ExpectedValue)

	fmt.Fprintf(w, "Max Drawdown:     $%.2f (%.2f%%)\n", s.MaxDrawdown, s.MaxDrawdownPercent)
	fmt.Fprintf(w, "Exposure:         %.1f%%\n", s.Exposure*100)
	fmt.Fprintf(w, "Avg Duration:     %s\n", s.AvgTradeDuration.Round(time.Minute))
}

// PrintTradesBetween prints trades[from:to], clamped to the log's bounds.
func (r *RunResult) PrintTradesBetween(from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(r.Trades) {
		to = len(r.Trades)
	}
	fmt.Println("\n=== Trade List ===")
	for i := from; i < to; i++ {
		r.Trades[i].Print()
	}
}
