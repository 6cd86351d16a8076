package types

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func at(minutes int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(minutes) * time.Minute)
}

func TestBar_IndicatorUndefined(t *testing.T) {
	bar := Bar{Indicators: map[string]float64{ShortAvg: 10, LongAvg: math.NaN()}}

	v, ok := bar.Indicator(ShortAvg)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)

	_, ok = bar.Indicator(LongAvg)
	assert.False(t, ok, "NaN should be treated as undefined")

	_, ok = bar.Indicator(RSI)
	assert.False(t, ok, "missing key should be treated as undefined")

	assert.False(t, Bar{}.HasIndicators(RequiredIndicators...))
}

func TestSeries_Validate(t *testing.T) {
	good := Series{
		{Timestamp: at(0), Open: 1, High: 1, Low: 1, Close: 1},
		{Timestamp: at(15), Open: 1, High: 2, Low: 1, Close: 2},
	}
	assert.NoError(t, good.Validate())

	backwards := Series{
		{Timestamp: at(15), Close: 1},
		{Timestamp: at(0), Close: 1},
	}
	assert.ErrorIs(t, backwards.Validate(), ErrInvalidSeries)

	duplicate := Series{
		{Timestamp: at(0), Close: 1},
		{Timestamp: at(0), Close: 1},
	}
	assert.ErrorIs(t, duplicate.Validate(), ErrInvalidSeries)

	negative := Series{{Timestamp: at(0), Close: -1}}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidSeries)
}

func TestSeries_TrimWarmup(t *testing.T) {
	full := map[string]float64{ShortAvg: 1, LongAvg: 1, RSI: 50, BollingerUpper: 2}
	s := Series{
		{Timestamp: at(0), Indicators: map[string]float64{ShortAvg: 1}},
		{Timestamp: at(15), Indicators: map[string]float64{ShortAvg: 1, LongAvg: math.NaN()}},
		{Timestamp: at(30), Indicators: full},
		{Timestamp: at(45), Indicators: full},
	}

	trimmed := s.TrimWarmup(RequiredIndicators...)
	assert.Len(t, trimmed, 2)
	assert.Equal(t, at(30), trimmed[0].Timestamp)

	assert.Empty(t, s[:2].TrimWarmup(RequiredIndicators...))
}

func TestSeries_CloneIsIndependent(t *testing.T) {
	s := Series{{Timestamp: at(0), Close: 5, Indicators: map[string]float64{RSI: 40}}}
	c := s.Clone()
	c[0].Close = 6
	c[0].Indicators[RSI] = 90

	assert.Equal(t, 5.0, s[0].Close)
	assert.Equal(t, 40.0, s[0].Indicators[RSI])
}

func TestParams_Validate(t *testing.T) {
	assert.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.ShortWindow = p.LongWindow
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.TrailingStop = 1
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)

	p = DefaultParams()
	p.BollingerPeriod = 0
	assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
}
