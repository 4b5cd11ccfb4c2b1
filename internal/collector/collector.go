package collector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"BandSentinel/internal/model"
	"BandSentinel/internal/strategy"
)

// ErrNoData is returned when a symbol has no usable price history for the
// requested parameters: provider failure, empty series, history shorter than
// the window, or an undefined band at the latest bar.
var ErrNoData = errors.New("no usable price data")

// DefaultLookbackDays covers roughly six months of daily closes.
const DefaultLookbackDays = 180

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price float64
	// Bars, when non-nil, serves per-symbol data; symbols missing from it fail.
	Bars   map[string][]model.OHLCV
	Errors map[string]error
	// Delay, when set, is applied before answering unless ctx ends first.
	Delay time.Duration

	mu    sync.Mutex
	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many fetches have been served.
func (m *MockFetcher) Calls() int64 { return m.calls.Load() }

// SetBars replaces the data served for symbol.
func (m *MockFetcher) SetBars(symbol string, bars []model.OHLCV) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Bars == nil {
		m.Bars = make(map[string][]model.OHLCV)
	}
	m.Bars[symbol] = bars
}

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if m.Bars != nil {
		bars, ok := m.Bars[symbol]
		if !ok {
			return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
		}
		out := make([]model.OHLCV, len(bars))
		copy(out, bars)
		return out, nil
	}
	return generateMockBars(m.Price, days), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	end := time.Now().UTC().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches a fresh price series per evaluation and runs the band
// computation and classification over it. It holds no per-symbol state.
type Collector struct {
	Fetcher      Fetcher
	LookbackDays int
	log          *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, lookbackDays int, log *zap.Logger) *Collector {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{Fetcher: fetcher, LookbackDays: lookbackDays, log: log}
}

// Collect fetches and sanitizes the daily series for symbol.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, c.LookbackDays)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch daily bars for %s", symbol)
	}
	return &model.PriceSeries{
		Symbol:    symbol,
		Bars:      SanitizeBars(bars),
		FetchedAt: time.Now(),
	}, nil
}

// Evaluate fetches symbol and classifies its latest close. Every failure is
// reported as an error wrapping ErrNoData; it never panics.
func (c *Collector) Evaluate(ctx context.Context, symbol string, params model.BandParameters) (res *model.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = errors.Wrapf(ErrNoData, "%s: evaluation panic: %v", symbol, r)
		}
	}()

	if err := params.Validate(); err != nil {
		return nil, errors.Wrapf(ErrNoData, "%s: %v", symbol, err)
	}

	series, err := c.Collect(ctx, symbol)
	if err != nil {
		c.log.Debug("fetch failed", zap.String("symbol", symbol), zap.String("source", c.Fetcher.Name()), zap.Error(err))
		return nil, errors.Wrapf(ErrNoData, "%v", err)
	}
	if series.Len() == 0 {
		return nil, errors.Wrapf(ErrNoData, "%s: empty series", symbol)
	}
	if series.Len() < params.Window {
		return nil, errors.Wrapf(ErrNoData, "%s: %d bars, window %d", symbol, series.Len(), params.Window)
	}

	result, signal := strategy.Evaluate(series, params)
	if result == nil {
		return nil, errors.Wrapf(ErrNoData, "%s: signal %s", symbol, signal)
	}
	c.log.Debug("evaluated",
		zap.String("symbol", symbol),
		zap.String("signal", string(signal)),
		zap.Float64("close", result.ClosePrice),
		zap.Float64("upper", result.UpperBand),
		zap.Float64("lower", result.LowerBand),
	)
	return result, nil
}
