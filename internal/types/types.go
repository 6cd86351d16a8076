package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	ShortAvg        = "short_avg"
	LongAvg         = "long_avg"
	RSI             = "rsi"
	BollingerUpper  = "bollinger_upper"
	BollingerMiddle = "bollinger_middle"
	BollingerLower  = "bollinger_lower"
)

// RequiredIndicators are the columns the strategy reads on every bar.
var RequiredIndicators = []string{ShortAvg, LongAvg, RSI, BollingerUpper}

var ErrInvalidSeries = errors.New("invalid bar series")

type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64

	// Indicators holds derived values keyed by name. A missing key or NaN
	// means the indicator has not warmed up yet.
	Indicators map[string]float64
}

// Indicator returns the named value and whether it is defined.
func (b Bar) Indicator(name string) (float64, bool) {
	v, ok := b.Indicators[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// HasIndicators reports whether every named indicator is defined on the bar.
func (b Bar) HasIndicators(names ...string) bool {
	for _, name := range names {
		if _, ok := b.Indicator(name); !ok {
			return false
		}
	}
	return true
}

// Series is an ordered, time-ascending sequence of bars.
type Series []Bar

// Validate checks the ordering and price constraints of the series.
func (s Series) Validate() error {
	for i, bar := range s {
		for _, p := range []float64{bar.Open, bar.High, bar.Low, bar.Close, bar.Volume} {
			if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
				return fmt.Errorf("%w: bar %d at %s has invalid price or volume %v", ErrInvalidSeries, i, bar.Timestamp.Format(time.RFC3339), p)
			}
		}
		if i > 0 && !bar.Timestamp.After(s[i-1].Timestamp) {
			return fmt.Errorf("%w: bar %d timestamp %s is not after %s", ErrInvalidSeries, i, bar.Timestamp.Format(time.RFC3339), s[i-1].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// Clone returns a deep copy, including each bar's indicator map.
func (s Series) Clone() Series {
	out := make(Series, len(s))
	for i, bar := range s {
		out[i] = bar
		if bar.Indicators != nil {
			out[i].Indicators = make(map[string]float64, len(bar.Indicators))
			for k, v := range bar.Indicators {
				out[i].Indicators[k] = v
			}
		}
	}
	return out
}

// TrimWarmup drops leading bars until one has every named indicator defined.
// The returned slice shares storage with s.
func (s Series) TrimWarmup(names ...string) Series {
	for i, bar := range s {
		if bar.HasIndicators(names...) {
			return s[i:]
		}
	}
	return s[len(s):]
}
