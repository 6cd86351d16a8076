// Package signal holds the stateless entry and exit predicates. Every
// predicate treats an undefined indicator as "condition not met".
package signal

import "github.com/jwtly10/crossbot/internal/types"

func averages(bar types.Bar) (short, long float64, ok bool) {
	short, okShort := bar.Indicator(types.ShortAvg)
	long, okLong := bar.Indicator(types.LongAvg)
	return short, long, okShort && okLong
}

// IsGoldenCross reports the short average moving from at-or-below to
// strictly above the long average between prev and cur.
func IsGoldenCross(prev, cur types.Bar) bool {
	ps, pl, okPrev := averages(prev)
	cs, cl, okCur := averages(cur)
	if !okPrev || !okCur {
		return false
	}
	return cs > cl && ps <= pl
}

// IsDeathCross reports the short average moving from at-or-above to
// strictly below the long average between prev and cur.
func IsDeathCross(prev, cur types.Bar) bool {
	ps, pl, okPrev := averages(prev)
	cs, cl, okCur := averages(cur)
	if !okPrev || !okCur {
		return false
	}
	return cs < cl && ps >= pl
}

func IsMomentumConfirmed(cur types.Bar, overbought float64) bool {
	rsi, ok := cur.Indicator(types.RSI)
	return ok && rsi < overbought
}

func IsBreakoutConfirmed(cur types.Bar) bool {
	upper, ok := cur.Indicator(types.BollingerUpper)
	return ok && cur.Close > upper
}

// Entry records which entry conditions held on a bar.
type Entry struct {
	GoldenCross bool
	Momentum    bool
	Breakout    bool
}

// Confirmed is true only when all three conditions co-occur.
func (e Entry) Confirmed() bool {
	return e.GoldenCross && e.Momentum && e.Breakout
}

// Reason describes why a golden cross did or did not become an entry.
func (e Entry) Reason() string {
	switch {
	case !e.GoldenCross:
		return "no golden cross"
	case !e.Momentum:
		return "golden cross but RSI too high"
	case !e.Breakout:
		return "golden cross and RSI ok, waiting for Bollinger breakout"
	default:
		return "all signals confirm"
	}
}

func EvaluateEntry(prev, cur types.Bar, overbought float64) Entry {
	return Entry{
		GoldenCross: IsGoldenCross(prev, cur),
		Momentum:    IsMomentumConfirmed(cur, overbought),
		Breakout:    IsBreakoutConfirmed(cur),
	}
}
