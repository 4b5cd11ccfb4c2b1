package calculator

import "github.com/pkg/errors"

var (
	errNonPositivePeriod = errors.New("period must be positive")
	errNotEnoughData     = errors.New("not enough data")
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errNonPositivePeriod
	}
	if len(prices) < period {
		return 0, errors.Wrapf(errNotEnoughData, "SMA(%d) over %d prices", period, len(prices))
	}
	// Sum offsets from the first price so a flat window averages to that
	// price exactly.
	start := len(prices) - period
	ref := prices[start]
	var sum float64
	for i := start; i < len(prices); i++ {
		sum += prices[i] - ref
	}
	return ref + sum/float64(period), nil
}
