package calculator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BandSentinel/internal/model"
)

func TestComputeBands_ConstantSeries(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 10}
	bands := ComputeBands(closes, model.BandParameters{Window: 5, Multiplier: 2.0})

	require.Len(t, bands, len(closes))
	for i := 0; i < 4; i++ {
		assert.Nil(t, bands[i], "index %d should be undefined", i)
	}
	for _, i := range []int{4, 5} {
		require.NotNil(t, bands[i])
		assert.Equal(t, 10.0, bands[i].Mean)
		assert.Equal(t, 0.0, bands[i].StdDev)
		assert.Equal(t, 10.0, bands[i].Upper)
		assert.Equal(t, 10.0, bands[i].Lower)
	}
}

func TestComputeBands_FlatWindowHasZeroWidth(t *testing.T) {
	for _, price := range []float64{0.1, 0.7, 1.1, 190.37, 2900.45} {
		for window := 2; window <= 50; window++ {
			closes := make([]float64, window+3)
			for i := range closes {
				closes[i] = price
			}
			for _, m := range []float64{0.5, 1, 2, 3} {
				bands := ComputeBands(closes, model.BandParameters{Window: window, Multiplier: m})
				for i := window - 1; i < len(bands); i++ {
					b := bands[i]
					require.NotNil(t, b)
					assert.Equal(t, price, b.Mean, "price=%v window=%d", price, window)
					assert.Equal(t, 0.0, b.StdDev, "price=%v window=%d", price, window)
					assert.Equal(t, price, b.Upper, "price=%v window=%d m=%v", price, window, m)
					assert.Equal(t, price, b.Lower, "price=%v window=%d m=%v", price, window, m)
				}
			}
		}
	}
}

func TestComputeBands_DefinedIffWindowFull(t *testing.T) {
	closes := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	for window := 1; window <= len(closes)+2; window++ {
		bands := ComputeBands(closes, model.BandParameters{Window: window, Multiplier: 1.5})
		require.Len(t, bands, len(closes))
		for i, b := range bands {
			if i >= window-1 {
				assert.NotNil(t, b, "window=%d index=%d", window, i)
			} else {
				assert.Nil(t, b, "window=%d index=%d", window, i)
			}
		}
	}
}

func TestComputeBands_WidthIsTwiceMultiplierStdDev(t *testing.T) {
	closes := []float64{101.2, 99.8, 100.5, 103.1, 98.7, 97.2, 104.9, 105.3, 102.2, 99.9}
	for _, m := range []float64{0.5, 1.0, 2.0, 2.7} {
		bands := ComputeBands(closes, model.BandParameters{Window: 4, Multiplier: m})
		for _, b := range bands {
			if b == nil {
				continue
			}
			assert.InDelta(t, 2*m*b.StdDev, b.Upper-b.Lower, 1e-9)
		}
	}
}

func TestComputeBands_SampleStdDev(t *testing.T) {
	// window [2,4,4,4,5,5,7,9]: mean 5, squared deviations sum 32
	closes := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	bands := ComputeBands(closes, model.BandParameters{Window: 8, Multiplier: 2})

	last := LastBand(bands)
	require.NotNil(t, last)
	assert.InDelta(t, 5.0, last.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7.0), last.StdDev, 1e-12)
	assert.InDelta(t, 5+2*math.Sqrt(32.0/7.0), last.Upper, 1e-12)
}

func TestComputeBands_WindowOfOne(t *testing.T) {
	closes := []float64{5, 7, 3}
	bands := ComputeBands(closes, model.BandParameters{Window: 1, Multiplier: 2})
	for i, b := range bands {
		require.NotNil(t, b)
		assert.Equal(t, closes[i], b.Mean)
		assert.Equal(t, 0.0, b.StdDev)
		assert.Equal(t, closes[i], b.Upper)
		assert.Equal(t, closes[i], b.Lower)
	}
}

func TestComputeBands_InsufficientData(t *testing.T) {
	params := model.BandParameters{Window: 20, Multiplier: 2}

	assert.Empty(t, ComputeBands(nil, params))
	assert.Nil(t, LastBand(ComputeBands(nil, params)))

	bands := ComputeBands([]float64{1, 2, 3}, params)
	require.Len(t, bands, 3)
	assert.Nil(t, LastBand(bands))
}

func TestComputeBands_NegativeLowerBandIsKept(t *testing.T) {
	closes := []float64{0.5, 3, 0.2, 4, 0.1}
	bands := ComputeBands(closes, model.BandParameters{Window: 5, Multiplier: 3})
	last := LastBand(bands)
	require.NotNil(t, last)
	assert.Less(t, last.Lower, 0.0)
}

func TestComputeSeriesBands(t *testing.T) {
	series := &model.PriceSeries{Symbol: "X", Bars: []model.OHLCV{{Close: 1}, {Close: 2}, {Close: 3}}}
	bands := ComputeSeriesBands(series, model.BandParameters{Window: 3, Multiplier: 1})
	last := LastBand(bands)
	require.NotNil(t, last)
	assert.Equal(t, 2.0, last.Mean)
	assert.InDelta(t, 1.0, last.StdDev, 1e-12)

	assert.Nil(t, ComputeSeriesBands(nil, model.BandParameters{Window: 3, Multiplier: 1}))
}

func TestCalculateSMA(t *testing.T) {
	v, err := CalculateSMA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, v)

	_, err = CalculateSMA([]float64{1}, 2)
	assert.Error(t, err)

	_, err = CalculateSMA([]float64{1}, 0)
	assert.Error(t, err)
}

func TestCalculateStdDev(t *testing.T) {
	v, err := CalculateStdDev([]float64{1, 2, 3}, 3, 2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-12)

	v, err = CalculateStdDev([]float64{42}, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)

	_, err = CalculateStdDev([]float64{1, 2}, 3, 1.5)
	assert.Error(t, err)
}
