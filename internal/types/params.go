package types

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid strategy parameters")

// Params is one strategy configuration. Values are copied into every run,
// so a Params is never shared mutable state.
type Params struct {
	ShortWindow     int     `yaml:"short_window" json:"short_window"`
	LongWindow      int     `yaml:"long_window" json:"long_window"`
	RSIOverbought   float64 `yaml:"rsi_overbought" json:"rsi_overbought"`
	BollingerPeriod int     `yaml:"bollinger_period" json:"bollinger_period"`
	BollingerStdDev float64 `yaml:"bollinger_stddev" json:"bollinger_stddev"`
	TrailingStop    float64 `yaml:"trailing_stop" json:"trailing_stop"`
}

// DefaultParams are the settings the live bot ran with after its last sweep.
func DefaultParams() Params {
	return Params{
		ShortWindow:     50,
		LongWindow:      80,
		RSIOverbought:   65,
		BollingerPeriod: 20,
		BollingerStdDev: 2,
		TrailingStop:    0.03,
	}
}

func (p Params) Validate() error {
	if p.ShortWindow <= 0 || p.LongWindow <= 0 {
		return fmt.Errorf("%w: windows must be positive (short=%d, long=%d)", ErrInvalidParams, p.ShortWindow, p.LongWindow)
	}
	if p.ShortWindow >= p.LongWindow {
		return fmt.Errorf("%w: short window %d must be less than long window %d", ErrInvalidParams, p.ShortWindow, p.LongWindow)
	}
	if p.BollingerPeriod <= 0 {
		return fmt.Errorf("%w: bollinger period must be positive, got %d", ErrInvalidParams, p.BollingerPeriod)
	}
	if p.BollingerStdDev <= 0 {
		return fmt.Errorf("%w: bollinger stddev must be positive, got %v", ErrInvalidParams, p.BollingerStdDev)
	}
	if p.TrailingStop <= 0 || p.TrailingStop >= 1 {
		return fmt.Errorf("%w: trailing stop must be in (0,1), got %v", ErrInvalidParams, p.TrailingStop)
	}
	return nil
}

func (p Params) String() string {
	return fmt.Sprintf("short=%d long=%d rsi<%.0f bb=%d/%.1f stop=%.2f%%",
		p.ShortWindow, p.LongWindow, p.RSIOverbought, p.BollingerPeriod, p.BollingerStdDev, p.TrailingStop*100)
}
