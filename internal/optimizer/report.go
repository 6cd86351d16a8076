package optimizer

import (
	"fmt"
	"io"
	"sort"

	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/types"
)

// Report is the ranked outcome of one sweep.
type Report struct {
	ID            string
	InitialEquity float64
	// Results is ordered by descending final equity. Results without
	// enough data follow all active ones.
	Results   []*backtest.RunResult
	Evaluated int
	Skipped   []types.Params
}

// Rank returns results ordered by descending final equity, ties kept in
// input order. Insufficient-data results sort after every active result.
func Rank(results []*backtest.RunResult) []*backtest.RunResult {
	ranked := make([]*backtest.RunResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Active() != b.Active() {
			return a.Active()
		}
		return a.FinalEquity > b.FinalEquity
	})
	return ranked
}

// Top returns at most k leading results.
func (r *Report) Top(k int) []*backtest.RunResult {
	if k < 0 {
		k = 0
	}
	if k > len(r.Results) {
		k = len(r.Results)
	}
	return r.Results[:k]
}

// Best returns the parameters of the top active result.
func (r *Report) Best() (types.Params, bool) {
	if len(r.Results) == 0 || !r.Results[0].Active() {
		return types.Params{}, false
	}
	return r.Results[0].Params, true
}

// Print writes the top-k table followed by the recommended settings.
func (r *Report) Print(w io.Writer, k int) {
	fmt.Fprintln(w, "\n=== Optimization Complete ===")
	fmt.Fprintf(w, "Sweep:            %s\n", r.ID)
	fmt.Fprintf(w, "Evaluated:        %d (skipped %d invalid)\n", r.Evaluated, len(r.Skipped))

	top := r.Top(k)
	if len(top) == 0 {
		fmt.Fprintln(w, "No valid results found.")
		return
	}

	fmt.Fprintf(w, "\nTop %d strategies:\n", len(top))
	for i, res := range top {
		note := ""
		if !res.Active() {
			note = " | insufficient data"
		}
		fmt.Fprintf(w, "#%d: Equity: $%.2f | Perf: %.2f%% | Trades: %d | %s%s\n",
			i+1, res.FinalEquity, res.PerformancePct, res.TradeCount, res.Params.String(), note)
	}

	best, ok := r.Best()
	if !ok {
		fmt.Fprintln(w, "\nNo parameter set had enough data to recommend.")
		return
	}
	fmt.Fprintln(w, "\n=== Recommendation ===")
	fmt.Fprintf(w, "short_window:     %d\n", best.ShortWindow)
	fmt.Fprintf(w, "long_window:      %d\n", best.LongWindow)
	fmt.Fprintf(w, "rsi_overbought:   %g\n", best.RSIOverbought)
	fmt.Fprintf(w, "bollinger_period: %d\n", best.BollingerPeriod)
	fmt.Fprintf(w, "bollinger_stddev: %g\n", best.BollingerStdDev)
	fmt.Fprintf(w, "trailing_stop:    %g\n", best.TrailingStop)
}
