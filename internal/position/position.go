package position

import (
	"fmt"
	"math"
	"time"

	"github.com/jwtly10/crossbot/internal/logging"
	"github.com/jwtly10/crossbot/internal/signal"
	"github.com/jwtly10/crossbot/internal/types"
)

var posLog = logging.New("position")

const (
	FLAT State = "FLAT"
	LONG State = "LONG"

	HOLD  Action = "HOLD"
	ENTER Action = "ENTER"
	EXIT  Action = "EXIT"

	ReasonEntry        = "GOLDEN_CROSS_BREAKOUT"
	ReasonTrailingStop = "TRAILING_STOP"
	ReasonDeathCross   = "DEATH_CROSS"
	ReasonOpenAtEnd    = "OPEN_AT_END"
)

type State string
type Action string

// Decision is the outcome of one Step.
type Decision struct {
	Action Action
	Reason string
	Price  float64
	Time   time.Time
	// Trade is set when Action is EXIT.
	Trade *Trade
}

type Trade struct {
	ID         int
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64
	Quantity   float64
	PnL        float64
	PnLPercent float64
	ExitReason string
	// Open marks a position valued at the last close but never sold.
	Open bool
}

func (t Trade) Print() {
	fmt.Printf("#%d | LONG | Entry: %.5f @ %s | Exit: %.5f @ %s | P&L: $%.2f (%.2f%%) | %s\n",
		t.ID,
		t.EntryPrice,
		t.EntryTime.Format("2006-01-02 15:04"),
		t.ExitPrice,
		t.ExitTime.Format("2006-01-02 15:04"),
		t.PnL,
		t.PnLPercent,
		t.ExitReason,
	)
}

// Snapshot is a read-only view of the machine. Price fields are NaN while FLAT.
type Snapshot struct {
	State        State
	EntryPrice   float64
	EntryTime    time.Time
	PeakPrice    float64
	TrailingStop float64
	CoinBalance  float64
	Equity       float64
	TradeCount   int
}

// Machine is the FLAT/LONG position state for a single run. It is not
// safe for concurrent use; each run owns its own Machine.
type Machine struct {
	params types.Params

	state        State
	entryPrice   float64
	entryTime    time.Time
	peakPrice    float64
	trailingStop float64
	coinBalance  float64
	equity       float64
	tradeCount   int
}

func New(params types.Params, initialEquity float64) *Machine {
	m := &Machine{
		params: params,
		equity: initialEquity,
	}
	m.reset()
	return m
}

// Restore builds a machine from a snapshot, e.g. to resume an open position.
// For a LONG snapshot the trailing stop is recomputed from the peak.
func Restore(params types.Params, snap Snapshot) *Machine {
	m := New(params, snap.Equity)
	m.tradeCount = snap.TradeCount
	if snap.State == LONG {
		m.state = LONG
		m.entryPrice = snap.EntryPrice
		m.entryTime = snap.EntryTime
		m.peakPrice = math.Max(snap.PeakPrice, snap.EntryPrice)
		m.trailingStop = m.stopFor(m.peakPrice)
		m.coinBalance = snap.CoinBalance
		if m.coinBalance == 0 && snap.EntryPrice > 0 {
			m.coinBalance = snap.Equity / snap.EntryPrice
		}
	}
	return m
}

func (m *Machine) reset() {
	m.state = FLAT
	m.entryPrice = math.NaN()
	m.peakPrice = math.NaN()
	m.trailingStop = math.NaN()
	m.entryTime = time.Time{}
	m.coinBalance = 0
}

func (m *Machine) stopFor(peak float64) float64 {
	return peak * (1 - m.params.TrailingStop)
}

// Step advances the machine by one bar. A bar either evaluates entry (FLAT)
// or exit (LONG), never both.
func (m *Machine) Step(prev, cur types.Bar) Decision {
	if m.state == FLAT {
		return m.stepFlat(prev, cur)
	}
	return m.stepLong(prev, cur)
}

func (m *Machine) stepFlat(prev, cur types.Bar) Decision {
	entry := signal.EvaluateEntry(prev, cur, m.params.RSIOverbought)
	if !entry.Confirmed() || cur.Close <= 0 {
		if entry.GoldenCross {
			posLog.Debug("Entry not confirmed", "timestamp", cur.Timestamp, "reason", entry.Reason(), "close", cur.Close)
		}
		return Decision{Action: HOLD, Price: cur.Close, Time: cur.Timestamp}
	}

	m.state = LONG
	m.entryPrice = cur.Close
	m.entryTime = cur.Timestamp
	m.peakPrice = cur.Close
	m.trailingStop = m.stopFor(cur.Close)
	m.coinBalance = m.equity / cur.Close
	m.equity = m.coinBalance * cur.Close
	m.tradeCount++

	posLog.Info("Entered position", "timestamp", cur.Timestamp, "price", cur.Close, "coins", m.coinBalance, "stop", m.trailingStop, "trade", m.tradeCount)

	return Decision{Action: ENTER, Reason: ReasonEntry, Price: cur.Close, Time: cur.Timestamp}
}

func (m *Machine) stepLong(prev, cur types.Bar) Decision {
	if cur.Close > m.peakPrice {
		m.peakPrice = cur.Close
		m.trailingStop = m.stopFor(m.peakPrice)
		posLog.Debug("Trailing stop raised", "timestamp", cur.Timestamp, "peak", m.peakPrice, "stop", m.trailingStop)
	}

	// Stop-loss is checked before the death cross and wins when both fire.
	var reason string
	switch {
	case cur.Close <= m.trailingStop:
		reason = ReasonTrailingStop
	case signal.IsDeathCross(prev, cur):
		reason = ReasonDeathCross
	}

	m.equity = m.coinBalance * cur.Close
	if reason == "" {
		return Decision{Action: HOLD, Price: cur.Close, Time: cur.Timestamp}
	}

	trade := m.trade(cur, reason, false)
	posLog.Info("Exited position", "timestamp", cur.Timestamp, "price", cur.Close, "reason", reason, "pnl", trade.PnL, "equity", m.equity)
	m.reset()

	return Decision{Action: EXIT, Reason: reason, Price: cur.Close, Time: cur.Timestamp, Trade: &trade}
}

func (m *Machine) trade(bar types.Bar, reason string, open bool) Trade {
	cost := m.coinBalance * m.entryPrice
	pnl := m.coinBalance*bar.Close - cost
	pct := 0.0
	if cost > 0 {
		pct = pnl / cost * 100
	}
	return Trade{
		ID:         m.tradeCount,
		EntryTime:  m.entryTime,
		ExitTime:   bar.Timestamp,
		EntryPrice: m.entryPrice,
		ExitPrice:  bar.Close,
		Quantity:   m.coinBalance,
		PnL:        pnl,
		PnLPercent: pct,
		ExitReason: reason,
		Open:       open,
	}
}

// MarkToMarket values any open position at bar's close without closing it
// and returns the resulting equity.
func (m *Machine) MarkToMarket(bar types.Bar) float64 {
	if m.state == LONG {
		m.equity = m.coinBalance * bar.Close
	}
	return m.equity
}

// OpenTrade describes the open position as a trade valued at bar's close.
func (m *Machine) OpenTrade(bar types.Bar) (Trade, bool) {
	if m.state != LONG {
		return Trade{}, false
	}
	return m.trade(bar, ReasonOpenAtEnd, true), true
}

func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		State:        m.state,
		EntryPrice:   m.entryPrice,
		EntryTime:    m.entryTime,
		PeakPrice:    m.peakPrice,
		TrailingStop: m.trailingStop,
		CoinBalance:  m.coinBalance,
		Equity:       m.equity,
		TradeCount:   m.tradeCount,
	}
}

func (m *Machine) State() State     { return m.state }
func (m *Machine) Equity() float64  { return m.equity }
func (m *Machine) TradeCount() int  { return m.tradeCount }
func (m *Machine) InPosition() bool { return m.state == LONG }
