package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"BandSentinel/internal/collector"
	"BandSentinel/internal/model"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/watchlist"
)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return c.err
}

func (c *captureNotifier) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return ""
	}
	return c.msgs[len(c.msgs)-1]
}

type captureRecorder struct {
	recorder.NoopRecorder
	refreshes []*recorder.RefreshRecord
	events    []*recorder.WatchlistEvent
}

func (c *captureRecorder) RecordRefresh(r *recorder.RefreshRecord) error {
	c.refreshes = append(c.refreshes, r)
	return nil
}

func (c *captureRecorder) RecordWatchlistEvent(e *recorder.WatchlistEvent) error {
	c.events = append(c.events, e)
	return nil
}

func bars(closes ...float64) []model.OHLCV {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	out := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: c}
	}
	return out
}

func breakout() []model.OHLCV {
	closes := make([]float64, 0, 20)
	for i := 0; i < 19; i++ {
		closes = append(closes, 100)
	}
	return bars(append(closes, 130)...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *collector.MockFetcher, *captureNotifier, *captureRecorder) {
	t.Helper()
	mock := &collector.MockFetcher{Bars: map[string][]model.OHLCV{
		"AAPL": bars(10, 10, 10, 10, 10, 10),
		"NVDA": breakout(),
	}}
	wl := watchlist.NewManager(collector.NewCollector(mock, 0, zap.NewNop()), zap.NewNop(), watchlist.WithConcurrency(2))
	n := &captureNotifier{}
	rec := &captureRecorder{}
	s := NewScheduler(context.Background(), wl, n, rec, model.BandParameters{Window: 5, Multiplier: 2}, zap.NewNop())
	return s, mock, n, rec
}

func TestHandleCommand_Add(t *testing.T) {
	s, _, _, rec := newTestScheduler(t)
	ctx := context.Background()

	assert.Equal(t, "✅ AAPL added.", s.HandleCommand(ctx, "/add aapl"))
	assert.Equal(t, "AAPL already added.", s.HandleCommand(ctx, "/add AAPL"))
	assert.Equal(t, "Please enter a stock symbol.", s.HandleCommand(ctx, "/add"))
	assert.Contains(t, s.HandleCommand(ctx, "/add zzzz"), "invalid stock symbol or no data available")

	assert.Equal(t, []string{"AAPL"}, s.Watchlist.Symbols())
	require.Len(t, rec.events, 3)
	assert.Equal(t, "added", rec.events[0].Outcome)
	assert.Equal(t, "duplicate", rec.events[1].Outcome)
	assert.Equal(t, "no_data", rec.events[2].Outcome)
	assert.Equal(t, "ZZZZ", rec.events[2].Symbol)
}

func TestAddMessage_EscapesSymbol(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	reply := s.HandleCommand(context.Background(), "/add <b")
	assert.Equal(t, "❌ &lt;B: invalid stock symbol or no data available.", reply)
	assert.Equal(t, "A&amp;B already added.", AddMessage(watchlist.ErrDuplicateSymbol, "A&B"))
	assert.Equal(t, "✅ X&lt;Y added.", AddMessage(nil, "X<Y"))
}

func TestRefreshNow(t *testing.T) {
	s, mock, n, rec := newTestScheduler(t)
	ctx := context.Background()
	require.NoError(t, s.AddSymbol(ctx, "AAPL"))
	require.NoError(t, s.AddSymbol(ctx, "nvda"))

	mock.Errors = map[string]error{"AAPL": fmt.Errorf("provider down")}
	require.NoError(t, s.SetParams(model.BandParameters{Window: 20, Multiplier: 2}))

	report, err := s.RefreshNow(ctx)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "NVDA", report.Results[0].Symbol)
	assert.Equal(t, model.SignalSell, report.Results[0].Signal)

	require.Len(t, rec.refreshes, 1)
	assert.NotEmpty(t, rec.refreshes[0].CycleID)
	assert.Contains(t, rec.refreshes[0].Failures, "AAPL")
	assert.Equal(t, 20, rec.refreshes[0].Params.Window)

	assert.Contains(t, n.last(), "NVDA")
	assert.NotContains(t, n.last(), "AAPL")

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "AAPL", entries[0].Symbol)
	assert.Nil(t, entries[0].LastResult)
	require.NotNil(t, entries[1].LastResult)
	assert.Equal(t, model.SignalSell, entries[1].LastResult.Signal)

	assert.Equal(t, []string{"AAPL", "NVDA"}, s.Watchlist.Symbols())
}

func TestRefreshNow_NotifierError(t *testing.T) {
	s, _, n, _ := newTestScheduler(t)
	n.err = errors.New("telegram down")
	report, err := s.RefreshNow(context.Background())
	assert.Error(t, err)
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.Contains(t, s.HandleCommand(context.Background(), "/refresh"), "refresh failed")
}

func TestHandleCommand_RefreshAndList(t *testing.T) {
	s, _, n, _ := newTestScheduler(t)
	ctx := context.Background()
	s.HandleCommand(ctx, "/add AAPL")

	assert.Contains(t, s.HandleCommand(ctx, "/list"), "AAPL: no data this cycle")
	assert.Equal(t, "", s.HandleCommand(ctx, "/refresh"))
	assert.Contains(t, n.last(), "<b>AAPL</b> HOLD")
	assert.Contains(t, s.HandleCommand(ctx, "/list"), "AAPL: ⚪ HOLD @ 10.00")
}

func TestHandleCommand_Params(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	ctx := context.Background()

	assert.Equal(t, "Length 5 | Multiplier 2", s.HandleCommand(ctx, "/params"))
	assert.Equal(t, "✅ Length 10 | Multiplier 1.5", s.HandleCommand(ctx, "/params 10 1.5"))
	assert.Equal(t, model.BandParameters{Window: 10, Multiplier: 1.5}, s.Params())

	assert.Contains(t, s.HandleCommand(ctx, "/params 0 2"), "window")
	assert.Contains(t, s.HandleCommand(ctx, "/params 10 -1"), "multiplier")
	assert.Equal(t, "length must be an integer", s.HandleCommand(ctx, "/params x 2"))
	assert.Equal(t, "usage: /params LENGTH MULTIPLIER", s.HandleCommand(ctx, "/params 10"))
	assert.Equal(t, model.BandParameters{Window: 10, Multiplier: 1.5}, s.Params())
}

func TestHandleCommand_Help(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	assert.Equal(t, helpText, s.HandleCommand(context.Background(), "hello"))
	assert.Equal(t, helpText, s.HandleCommand(context.Background(), "  "))
}

func TestRegister(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	assert.NoError(t, s.Register("0 0 22 * * 1-5"))
	assert.Error(t, s.Register("not a cron"))

	s.Start()
	s.Stop()
}
