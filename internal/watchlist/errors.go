package watchlist

import (
	"github.com/pkg/errors"

	"BandSentinel/internal/collector"
)

var (
	// ErrEmptyInput is returned for a symbol that is blank after trimming.
	ErrEmptyInput = errors.New("empty symbol")
	// ErrDuplicateSymbol is returned when the normalized symbol is already tracked.
	ErrDuplicateSymbol = errors.New("symbol already in watchlist")
	// ErrNoData is returned when the trial evaluation yields no defined signal.
	ErrNoData = collector.ErrNoData
)
