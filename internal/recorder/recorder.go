package recorder

import (
	"time"

	"BandSentinel/internal/model"
)

// RefreshRecord holds the outcome of one watchlist refresh cycle.
type RefreshRecord struct {
	CycleID  string
	At       time.Time
	Params   model.BandParameters
	Symbols  []string
	Results  []model.EvaluationResult
	Failures map[string]string // symbol -> reason
}

// WatchlistEvent records an add attempt and its outcome.
type WatchlistEvent struct {
	At      time.Time
	Symbol  string
	Outcome string // "added", "empty_input", "duplicate", "no_data"
	Detail  string
}

// Recorder appends evaluation history for later analysis. Nothing recorded
// here is read back into the watchlist.
type Recorder interface {
	RecordRefresh(rec *RefreshRecord) error
	RecordWatchlistEvent(evt *WatchlistEvent) error
	Close() error
}
