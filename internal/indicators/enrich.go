package indicators

import (
	"github.com/jwtly10/crossbot/internal/logging"
	"github.com/jwtly10/crossbot/internal/types"
)

var enrichLog = logging.New("enrich")

// DefaultRSIPeriod is the RSI lookback used when none is configured.
const DefaultRSIPeriod = 14

// Enrich returns a copy of series with the strategy's indicator columns
// computed for params. The input series is not modified. Bars before an
// indicator's window is full carry NaN for that column.
func Enrich(series types.Series, params types.Params, rsiPeriod int) types.Series {
	if rsiPeriod <= 0 {
		rsiPeriod = DefaultRSIPeriod
	}

	out := series.Clone()

	short := NewSMA(params.ShortWindow)
	long := NewSMA(params.LongWindow)
	rsi := NewRSI(rsiPeriod)
	bb := NewBollinger(params.BollingerPeriod, params.BollingerStdDev)

	warm := false
	for i := range out {
		price := out[i].Close
		short.Update(price)
		long.Update(price)
		rsi.Update(price)
		bb.Update(price)

		if !warm && IndicatorsReady(short, long, rsi, bb) {
			warm = true
			enrichLog.Debug("Indicators warmed up", "index", i, "timestamp", out[i].Timestamp, "params", params.String())
		}

		if out[i].Indicators == nil {
			out[i].Indicators = make(map[string]float64, 6)
		}
		upper, middle, lower := bb.Bands()
		out[i].Indicators[types.ShortAvg] = short.Value()
		out[i].Indicators[types.LongAvg] = long.Value()
		out[i].Indicators[types.RSI] = rsi.Value()
		out[i].Indicators[types.BollingerUpper] = upper
		out[i].Indicators[types.BollingerMiddle] = middle
		out[i].Indicators[types.BollingerLower] = lower
	}

	if !warm {
		enrichLog.Warn("Indicators never warmed up", "bars", len(out), "params", params.String())
	}
	return out
}

// WarmupBars is the number of leading bars that will lack at least one
// required indicator after Enrich.
func WarmupBars(params types.Params, rsiPeriod int) int {
	if rsiPeriod <= 0 {
		rsiPeriod = DefaultRSIPeriod
	}
	n := params.LongWindow
	if params.ShortWindow > n {
		n = params.ShortWindow
	}
	if params.BollingerPeriod > n {
		n = params.BollingerPeriod
	}
	// RSI needs one extra bar for its first change.
	if rsiPeriod+1 > n {
		n = rsiPeriod + 1
	}
	return n - 1
}
