package scheduler

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"BandSentinel/internal/model"
	"BandSentinel/internal/notifier"
	"BandSentinel/internal/recorder"
	"BandSentinel/internal/watchlist"
)

// Scheduler drives watchlist refreshes from cron and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Watchlist *watchlist.Manager
	Notifier  notifier.Notifier
	Recorder  recorder.Recorder
	Ctx       context.Context

	log       *zap.Logger
	refreshMu sync.Mutex

	mu     sync.RWMutex
	params model.BandParameters
	last   map[string]*model.EvaluationResult
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, wl *watchlist.Manager, n notifier.Notifier, rec recorder.Recorder, params model.BandParameters, log *zap.Logger) *Scheduler {
	if n == nil {
		n = notifier.NoopNotifier{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Watchlist: wl,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
		log:       log,
		params:    params,
		last:      make(map[string]*model.EvaluationResult),
	}
}

// Register schedules the periodic refresh.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return errors.Wrap(err, "register refresh task")
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// Params returns the band parameters used for adds and refreshes.
func (s *Scheduler) Params() model.BandParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// SetParams replaces the band parameters after validating them.
func (s *Scheduler) SetParams(p model.BandParameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	s.log.Info("band parameters updated", zap.Int("window", p.Window), zap.Float64("multiplier", p.Multiplier))
	return nil
}

func (s *Scheduler) refreshTask() {
	if _, err := s.RefreshNow(s.Ctx); err != nil {
		s.log.Error("refresh", zap.Error(err))
	}
}

// RefreshNow re-evaluates the whole watchlist, records the cycle and sends
// the dashboard. Concurrent calls are serialized.
func (s *Scheduler) RefreshNow(ctx context.Context) (*watchlist.RefreshReport, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	params := s.Params()
	cycleID := uuid.NewString()
	log := s.log.With(zap.String("cycle_id", cycleID))
	log.Info("running refresh", zap.Int("symbols", s.Watchlist.Len()), zap.Int("window", params.Window))

	report := s.Watchlist.Refresh(ctx, params)

	last := make(map[string]*model.EvaluationResult, len(report.Results))
	for i := range report.Results {
		r := report.Results[i]
		last[r.Symbol] = &r
	}
	s.mu.Lock()
	s.last = last
	s.mu.Unlock()

	failures := make(map[string]string, len(report.Failures))
	for sym, err := range report.Failures {
		failures[sym] = err.Error()
	}
	if err := s.Recorder.RecordRefresh(&recorder.RefreshRecord{
		CycleID:  cycleID,
		At:       report.Started,
		Params:   params,
		Symbols:  report.Symbols,
		Results:  report.Results,
		Failures: failures,
	}); err != nil {
		log.Error("record refresh", zap.Error(err))
	}

	log.Info("refresh done",
		zap.Int("results", len(report.Results)),
		zap.Int("skipped", len(report.Failures)),
		zap.Duration("took", report.Duration),
	)

	if err := s.Notifier.Send(ctx, notifier.FormatDashboard(report.Results, params, report.Started)); err != nil {
		return report, errors.Wrap(err, "send dashboard")
	}
	return report, nil
}

// AddSymbol adds raw to the watchlist using the current parameters and
// records the outcome.
func (s *Scheduler) AddSymbol(ctx context.Context, raw string) error {
	err := s.Watchlist.AddSymbol(ctx, raw, s.Params())

	evt := &recorder.WatchlistEvent{At: time.Now(), Symbol: watchlist.Normalize(raw), Outcome: "added"}
	if err != nil {
		evt.Outcome = watchlist.Outcome(err)
		evt.Detail = err.Error()
	}
	if recErr := s.Recorder.RecordWatchlistEvent(evt); recErr != nil {
		s.log.Error("record watchlist event", zap.Error(recErr))
	}
	return err
}

// Entries returns every tracked symbol with its result from the last refresh.
func (s *Scheduler) Entries() []model.WatchlistEntry {
	symbols := s.Watchlist.Symbols()

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]model.WatchlistEntry, len(symbols))
	for i, sym := range symbols {
		entries[i] = model.WatchlistEntry{Symbol: sym, LastResult: s.last[sym]}
	}
	return entries
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/add":
		if len(fields) < 2 {
			return AddMessage(watchlist.ErrEmptyInput, "")
		}
		sym := strings.Join(fields[1:], " ")
		return AddMessage(s.AddSymbol(ctx, sym), watchlist.Normalize(sym))
	case "/refresh":
		if _, err := s.RefreshNow(ctx); err != nil {
			return fmt.Sprintf("❌ refresh failed: %v", err)
		}
		return ""
	case "/list":
		return notifier.FormatEntries(s.Entries())
	case "/params":
		if len(fields) == 1 {
			p := s.Params()
			return fmt.Sprintf("Length %d | Multiplier %v", p.Window, p.Multiplier)
		}
		if len(fields) != 3 {
			return "usage: /params LENGTH MULTIPLIER"
		}
		w, err := strconv.Atoi(fields[1])
		if err != nil {
			return "length must be an integer"
		}
		m, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return "multiplier must be a number"
		}
		if err := s.SetParams(model.BandParameters{Window: w, Multiplier: m}); err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return fmt.Sprintf("✅ Length %d | Multiplier %v", w, m)
	default:
		return helpText
	}
}

const helpText = "Commands:\n• /add SYMBOL\n• /refresh\n• /list\n• /params [LENGTH MULTIPLIER]"

// AddMessage turns an AddSymbol outcome into a user-facing HTML message.
func AddMessage(err error, symbol string) string {
	symbol = html.EscapeString(symbol)
	switch {
	case err == nil:
		return fmt.Sprintf("✅ %s added.", symbol)
	case errors.Is(err, watchlist.ErrEmptyInput):
		return "Please enter a stock symbol."
	case errors.Is(err, watchlist.ErrDuplicateSymbol):
		return fmt.Sprintf("%s already added.", symbol)
	default:
		return fmt.Sprintf("❌ %s: invalid stock symbol or no data available.", symbol)
	}
}
