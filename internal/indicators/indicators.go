package indicators

import (
	"math"

	"github.com/jwtly10/crossbot/internal/logging"
)

var (
	smaLog = logging.New("sma")
	rsiLog = logging.New("rsi")
	bbLog  = logging.New("bollinger")
)

// Indicator is a rolling calculation fed one close at a time.
type Indicator interface {
	Update(price float64)
	Value() float64
	Ready() bool
}

// SMA - Simple Moving Average over a fixed window
type SMA struct {
	period int
	values []float64
}

func NewSMA(period int) *SMA {
	return &SMA{
		period: period,
		values: make([]float64, 0, period+1),
	}
}

func (s *SMA) Update(price float64) {
	s.values = append(s.values, price)
	if len(s.values) > s.period {
		s.values = s.values[1:]
	}
	if smaLog.Enabled() {
		smaLog.Debug("SMA updated", "period", s.period, "price", price, "value", s.Value(), "ready", s.Ready())
	}
}

// Value returns NaN until the window is full.
func (s *SMA) Value() float64 {
	if !s.Ready() {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(s.period)
}

func (s *SMA) Ready() bool {
	return s.period > 0 && len(s.values) >= s.period
}

// RSI - Relative Strength Index. Gains and losses are averaged with an
// adjusted exponential mean, alpha = 1/period, which matches pandas_ta's rma.
type RSI struct {
	period  int
	decay   float64
	prev    float64
	hasPrev bool
	changes int
	sumGain float64
	sumLoss float64
	weight  float64
}

func NewRSI(period int) *RSI {
	r := &RSI{period: period}
	if period > 0 {
		r.decay = 1 - 1/float64(period)
	}
	return r
}

func (r *RSI) Update(price float64) {
	if !r.hasPrev {
		r.prev = price
		r.hasPrev = true
		return
	}

	change := price - r.prev
	r.prev = price
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}
	r.changes++

	r.sumGain = r.sumGain*r.decay + gain
	r.sumLoss = r.sumLoss*r.decay + loss
	r.weight = r.weight*r.decay + 1

	if rsiLog.Enabled() {
		avgGain, avgLoss := r.averages()
		rsiLog.Debug("RSI updated", "period", r.period, "price", price, "avgGain", avgGain, "avgLoss", avgLoss, "ready", r.Ready())
	}
}

func (r *RSI) averages() (gain, loss float64) {
	if r.weight == 0 {
		return 0, 0
	}
	return r.sumGain / r.weight, r.sumLoss / r.weight
}

// Value returns NaN until period changes have been seen. A window with no
// movement at all reads 50.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return math.NaN()
	}
	gain, loss := r.averages()
	if gain+loss == 0 {
		return 50
	}
	return 100 * gain / (gain + loss)
}

func (r *RSI) Ready() bool {
	return r.period > 0 && r.changes >= r.period
}

// Bollinger - Bollinger Bands using population standard deviation
type Bollinger struct {
	period int
	mult   float64
	sma    *SMA
}

func NewBollinger(period int, mult float64) *Bollinger {
	return &Bollinger{
		period: period,
		mult:   mult,
		sma:    NewSMA(period),
	}
}

func (b *Bollinger) Update(price float64) {
	b.sma.Update(price)
	if b.Ready() && bbLog.Enabled() {
		upper, middle, lower := b.Bands()
		bbLog.Debug("Bollinger updated", "period", b.period, "price", price, "upper", upper, "middle", middle, "lower", lower)
	}
}

// Value returns the upper band, the only band the entry rule reads.
func (b *Bollinger) Value() float64 {
	upper, _, _ := b.Bands()
	return upper
}

// Bands returns upper, middle and lower bands, NaN until ready.
func (b *Bollinger) Bands() (upper, middle, lower float64) {
	if !b.Ready() {
		nan := math.NaN()
		return nan, nan, nan
	}
	middle = b.sma.Value()
	variance := 0.0
	for _, v := range b.sma.values {
		d := v - middle
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(b.period))
	return middle + b.mult*sd, middle, middle - b.mult*sd
}

func (b *Bollinger) Ready() bool {
	return b.sma.Ready()
}

// IndicatorsReady reports whether every indicator has a full window.
func IndicatorsReady(indicators ...Indicator) bool {
	for _, ind := range indicators {
		if !ind.Ready() {
			return false
		}
	}
	return true
}
