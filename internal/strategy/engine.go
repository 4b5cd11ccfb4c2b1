package strategy

import (
	"BandSentinel/internal/calculator"
	"BandSentinel/internal/model"
)

// Classify maps the latest close onto the bands. Closes sitting exactly on a
// band are HOLD; a nil band is UNDETERMINED.
func Classify(lastClose float64, lastBand *model.BandPoint) model.Signal {
	switch {
	case lastBand == nil:
		return model.SignalUndetermined
	case lastClose > lastBand.Upper:
		return model.SignalSell
	case lastClose < lastBand.Lower:
		return model.SignalBuy
	default:
		return model.SignalHold
	}
}

// Evaluate computes the bands for series and classifies its last close.
// The result is nil whenever the signal is UNDETERMINED.
func Evaluate(series *model.PriceSeries, params model.BandParameters) (*model.EvaluationResult, model.Signal) {
	if series == nil {
		return nil, model.SignalUndetermined
	}
	last, ok := series.Last()
	if !ok {
		return nil, model.SignalUndetermined
	}

	band := calculator.LastBand(calculator.ComputeSeriesBands(series, params))
	signal := Classify(last.Close, band)
	if !signal.Determined() {
		return nil, signal
	}

	return &model.EvaluationResult{
		Symbol:     series.Symbol,
		ClosePrice: last.Close,
		UpperBand:  band.Upper,
		LowerBand:  band.Lower,
		Mean:       band.Mean,
		StdDev:     band.StdDev,
		Signal:     signal,
		AsOf:       last.Time,
	}, signal
}
