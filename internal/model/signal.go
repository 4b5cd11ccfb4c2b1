package model

import (
	"time"

	"github.com/pkg/errors"
)

// Signal is the classification of the latest close against the bands.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
	// SignalUndetermined means the band at the latest bar is undefined.
	SignalUndetermined Signal = "UNDETERMINED"
)

// Determined reports whether s is one of BUY, SELL or HOLD.
func (s Signal) Determined() bool {
	return s == SignalBuy || s == SignalSell || s == SignalHold
}

// BandParameters configures the Bollinger computation.
type BandParameters struct {
	Window     int     `yaml:"window"`
	Multiplier float64 `yaml:"multiplier"`
}

// DefaultBandParameters mirrors the usual 20-day, 2-sigma bands.
var DefaultBandParameters = BandParameters{Window: 20, Multiplier: 2.0}

// Validate checks the bounds every computation relies on.
func (p BandParameters) Validate() error {
	if p.Window < 1 {
		return errors.Errorf("window must be >= 1, got %d", p.Window)
	}
	if !(p.Multiplier > 0) {
		return errors.Errorf("multiplier must be positive, got %v", p.Multiplier)
	}
	return nil
}

// BandPoint holds the band values at one bar. A nil *BandPoint means the
// window was not yet full at that bar.
type BandPoint struct {
	Mean   float64
	StdDev float64
	Upper  float64
	Lower  float64
}

// EvaluationResult is produced once per symbol per evaluation and never mutated.
type EvaluationResult struct {
	Symbol     string
	ClosePrice float64
	UpperBand  float64
	LowerBand  float64
	Mean       float64
	StdDev     float64
	Signal     Signal
	AsOf       time.Time
}

// WatchlistEntry pairs a tracked symbol with the result of the last refresh, if any.
type WatchlistEntry struct {
	Symbol     string
	LastResult *EvaluationResult
}
