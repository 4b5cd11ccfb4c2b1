package watchlist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"BandSentinel/internal/metrics"
	"BandSentinel/internal/model"
)

// Evaluator produces a fresh result for one symbol. Implementations must
// report every failure as an error and never retain the fetched series.
type Evaluator interface {
	Evaluate(ctx context.Context, symbol string, params model.BandParameters) (*model.EvaluationResult, error)
}

// Manager holds the ordered, de-duplicated set of tracked symbols.
// Only AddSymbol mutates it.
type Manager struct {
	mu          sync.RWMutex
	symbols     []string
	index       map[string]struct{}
	eval        Evaluator
	concurrency int
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConcurrency bounds how many symbols RefreshAll evaluates at once.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// WithMetrics records evaluation outcomes on mt.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// NewManager creates an empty watchlist.
func NewManager(eval Evaluator, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		index:       make(map[string]struct{}),
		eval:        eval,
		concurrency: 1,
		log:         log,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Normalize trims and upper-cases a raw symbol.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// AddSymbol validates raw, runs a trial evaluation with params and appends
// the normalized symbol on success. The watchlist is unchanged on failure.
func (m *Manager) AddSymbol(ctx context.Context, raw string, params model.BandParameters) (err error) {
	symbol := Normalize(raw)
	defer func() { m.metrics.ObserveAdd(Outcome(err)) }()

	if symbol == "" {
		return ErrEmptyInput
	}
	if m.Contains(symbol) {
		return errors.Wrap(ErrDuplicateSymbol, symbol)
	}

	if _, err := m.evaluate(ctx, symbol, params); err != nil {
		m.log.Info("rejected symbol", zap.String("symbol", symbol), zap.Error(err))
		return errors.Wrap(ErrNoData, symbol)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A concurrent add may have won while the trial evaluation ran.
	if _, ok := m.index[symbol]; ok {
		return errors.Wrap(ErrDuplicateSymbol, symbol)
	}
	m.symbols = append(m.symbols, symbol)
	m.index[symbol] = struct{}{}
	m.metrics.SetWatchlistSize(len(m.symbols))
	m.log.Info("added symbol", zap.String("symbol", symbol), zap.Int("size", len(m.symbols)))
	return nil
}

// Contains reports whether raw, once normalized, is tracked.
func (m *Manager) Contains(raw string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.index[Normalize(raw)]
	return ok
}

// Symbols returns a copy of the tracked symbols in insertion order.
func (m *Manager) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.symbols))
	copy(out, m.symbols)
	return out
}

// Len returns the number of tracked symbols.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.symbols)
}

// RefreshReport is the outcome of one refresh cycle.
type RefreshReport struct {
	Symbols  []string
	Results  []model.EvaluationResult
	Failures map[string]error
	Started  time.Time
	Duration time.Duration
}

// RefreshAll re-evaluates every tracked symbol and returns the results in
// insertion order, omitting symbols that could not be evaluated.
func (m *Manager) RefreshAll(ctx context.Context, params model.BandParameters) []model.EvaluationResult {
	return m.Refresh(ctx, params).Results
}

// Refresh is RefreshAll with the per-symbol failure reasons kept.
func (m *Manager) Refresh(ctx context.Context, params model.BandParameters) *RefreshReport {
	started := time.Now()
	symbols := m.Symbols()

	slots := make([]*model.EvaluationResult, len(symbols))
	errs := make([]error, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			slots[i], errs[i] = m.evaluate(gctx, sym, params)
			return nil
		})
	}
	_ = g.Wait()

	report := &RefreshReport{
		Symbols:  symbols,
		Results:  make([]model.EvaluationResult, 0, len(symbols)),
		Failures: make(map[string]error),
		Started:  started,
	}
	for i, sym := range symbols {
		if errs[i] != nil || slots[i] == nil {
			if errs[i] == nil {
				errs[i] = ErrNoData
			}
			report.Failures[sym] = errs[i]
			m.log.Warn("skipped symbol", zap.String("symbol", sym), zap.Error(errs[i]))
			continue
		}
		report.Results = append(report.Results, *slots[i])
	}
	report.Duration = time.Since(started)
	m.metrics.ObserveRefresh(report.Duration)
	return report
}

// evaluate runs one evaluation and contains any panic in the evaluator.
func (m *Manager) evaluate(ctx context.Context, symbol string, params model.BandParameters) (res *model.EvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, errors.Wrap(ErrNoData, fmt.Sprintf("%s: panic: %v", symbol, r))
		}
		m.metrics.ObserveEvaluation(res, err)
	}()

	res, err = m.eval.Evaluate(ctx, symbol, params)
	if err == nil && (res == nil || !res.Signal.Determined()) {
		res, err = nil, errors.Wrap(ErrNoData, symbol)
	}
	return res, err
}

// Outcome labels an AddSymbol result for metrics and audit records.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "added"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, ErrDuplicateSymbol):
		return "duplicate"
	default:
		return "no_data"
	}
}
