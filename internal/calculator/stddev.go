package calculator

import (
	"math"

	"github.com/pkg/errors"
)

// CalculateStdDev returns the sample standard deviation (n-1 denominator) of
// the last period prices around mean. A period of 1 yields 0.
func CalculateStdDev(prices []float64, period int, mean float64) (float64, error) {
	if period <= 0 {
		return 0, errNonPositivePeriod
	}
	if len(prices) < period {
		return 0, errors.Wrapf(errNotEnoughData, "stddev(%d) over %d prices", period, len(prices))
	}
	if period == 1 {
		return 0, nil
	}
	start := len(prices) - period
	ref := prices[start]
	shift := mean - ref
	var sq float64
	for i := start; i < len(prices); i++ {
		d := (prices[i] - ref) - shift
		sq += d * d
	}
	return math.Sqrt(sq / float64(period-1)), nil
}
