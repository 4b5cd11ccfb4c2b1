package calculator

import "BandSentinel/internal/model"

// ComputeBands returns one entry per close. Entries before the window fills
// are nil; an empty or short input yields all nil.
func ComputeBands(closes []float64, params model.BandParameters) []*model.BandPoint {
	bands := make([]*model.BandPoint, len(closes))
	w := params.Window
	if w < 1 {
		return bands
	}
	for i := w - 1; i < len(closes); i++ {
		window := closes[i-w+1 : i+1]
		mean, err := CalculateSMA(window, w)
		if err != nil {
			continue
		}
		sd, err := CalculateStdDev(window, w, mean)
		if err != nil {
			continue
		}
		bands[i] = &model.BandPoint{
			Mean:   mean,
			StdDev: sd,
			Upper:  mean + params.Multiplier*sd,
			Lower:  mean - params.Multiplier*sd,
		}
	}
	return bands
}

// ComputeSeriesBands is ComputeBands over the closes of series.
func ComputeSeriesBands(series *model.PriceSeries, params model.BandParameters) []*model.BandPoint {
	if series == nil {
		return nil
	}
	return ComputeBands(series.Closes(), params)
}

// LastBand returns the band at the latest bar, or nil when it is undefined.
func LastBand(bands []*model.BandPoint) *model.BandPoint {
	if len(bands) == 0 {
		return nil
	}
	return bands[len(bands)-1]
}
