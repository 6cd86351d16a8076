package optimizer

import (
	"errors"
	"fmt"

	"github.com/jwtly10/crossbot/internal/types"
)

// Grid lists the candidate values for each strategy parameter.
type Grid struct {
	ShortWindows     []int     `yaml:"short_windows"`
	LongWindows      []int     `yaml:"long_windows"`
	RSIOverbought    []float64 `yaml:"rsi_overbought"`
	BollingerPeriods []int     `yaml:"bollinger_periods"`
	BollingerStdDevs []float64 `yaml:"bollinger_stddevs"`
	TrailingStops    []float64 `yaml:"trailing_stops"`
}

// DefaultGrid is the stock sweep for 4h ETH/USDT.
func DefaultGrid() Grid {
	return Grid{
		ShortWindows:     []int{40, 50},
		LongWindows:      []int{60, 80},
		RSIOverbought:    []float64{65, 70},
		BollingerPeriods: []int{20},
		BollingerStdDevs: []float64{2},
		TrailingStops:    []float64{0.03, 0.05},
	}
}

// SingleGrid is a grid holding exactly one parameter set.
func SingleGrid(p types.Params) Grid {
	return Grid{
		ShortWindows:     []int{p.ShortWindow},
		LongWindows:      []int{p.LongWindow},
		RSIOverbought:    []float64{p.RSIOverbought},
		BollingerPeriods: []int{p.BollingerPeriod},
		BollingerStdDevs: []float64{p.BollingerStdDev},
		TrailingStops:    []float64{p.TrailingStop},
	}
}

// Size is the length of the full cross-product, before filtering.
func (g Grid) Size() int {
	return len(g.ShortWindows) * len(g.LongWindows) * len(g.RSIOverbought) *
		len(g.BollingerPeriods) * len(g.BollingerStdDevs) * len(g.TrailingStops)
}

// Empty reports whether no list has any value.
func (g Grid) Empty() bool {
	return len(g.ShortWindows) == 0 && len(g.LongWindows) == 0 && len(g.RSIOverbought) == 0 &&
		len(g.BollingerPeriods) == 0 && len(g.BollingerStdDevs) == 0 && len(g.TrailingStops) == 0
}

func (g Grid) Validate() error {
	var errs []error
	check := func(name string, n int) {
		if n == 0 {
			errs = append(errs, fmt.Errorf("grid.%s must have at least one value", name))
		}
	}
	check("short_windows", len(g.ShortWindows))
	check("long_windows", len(g.LongWindows))
	check("rsi_overbought", len(g.RSIOverbought))
	check("bollinger_periods", len(g.BollingerPeriods))
	check("bollinger_stddevs", len(g.BollingerStdDevs))
	check("trailing_stops", len(g.TrailingStops))
	return errors.Join(errs...)
}

// Combinations returns the full cross-product. The first field varies
// slowest and the last fastest, so order is deterministic.
func (g Grid) Combinations() []types.Params {
	out := make([]types.Params, 0, g.Size())
	for _, short := range g.ShortWindows {
		for _, long := range g.LongWindows {
			for _, rsi := range g.RSIOverbought {
				for _, bbp := range g.BollingerPeriods {
					for _, bbs := range g.BollingerStdDevs {
						for _, stop := range g.TrailingStops {
							out = append(out, types.Params{
								ShortWindow:     short,
								LongWindow:      long,
								RSIOverbought:   rsi,
								BollingerPeriod: bbp,
								BollingerStdDev: bbs,
								TrailingStop:    stop,
							})
						}
					}
				}
			}
		}
	}
	return out
}

// Valid splits Combinations into runnable parameter sets and the ones
// rejected by Params.Validate, preserving order in both.
func (g Grid) Valid() (valid []types.Params, skipped []types.Params) {
	for _, p := range g.Combinations() {
		if err := p.Validate(); err != nil {
			optLog.Debug("Skipping invalid combination", "params", p.String(), "error", err)
			skipped = append(skipped, p)
			continue
		}
		valid = append(valid, p)
	}
	return valid, skipped
}
