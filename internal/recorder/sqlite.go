package recorder

import (
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists evaluation history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log *zap.Logger) (*SQLiteRecorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL so dashboards can read while the refresh job writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	r := &SQLiteRecorder{db: db, log: log}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS refresh_cycles (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id      TEXT NOT NULL UNIQUE,
			timestamp     INTEGER NOT NULL,
			window_len    INTEGER,
			multiplier    REAL,
			symbols_total INTEGER,
			results_total INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON refresh_cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS evaluations (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			cycle_id    TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			symbol      TEXT NOT NULL,
			as_of       INTEGER,
			close_price REAL,
			mean        REAL,
			stddev      REAL,
			upper_band  REAL,
			lower_band  REAL,
			signal      TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_eval_symbol_ts ON evaluations(symbol, timestamp)`,

		`CREATE TABLE IF NOT EXISTS watchlist_events (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			symbol    TEXT,
			outcome   TEXT,
			detail    TEXT
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return errors.Wrapf(err, "exec %q", s[:40])
		}
	}
	return nil
}

// RecordRefresh stores the cycle header plus one row per evaluated symbol;
// failed symbols get a row with the reason and no band values.
func (r *SQLiteRecorder) RecordRefresh(rec *RefreshRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := rec.At.Unix()
	tx, err := r.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO refresh_cycles
		(cycle_id, timestamp, window_len, multiplier, symbols_total, results_total)
		VALUES (?,?,?,?,?,?)`,
		rec.CycleID, ts, rec.Params.Window, rec.Params.Multiplier, len(rec.Symbols), len(rec.Results),
	); err != nil {
		return errors.Wrap(err, "insert cycle")
	}

	for _, res := range rec.Results {
		if _, err := tx.Exec(`INSERT INTO evaluations
			(cycle_id, timestamp, symbol, as_of, close_price, mean, stddev, upper_band, lower_band, signal)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			rec.CycleID, ts, res.Symbol, res.AsOf.Unix(), res.ClosePrice, res.Mean, res.StdDev,
			res.UpperBand, res.LowerBand, string(res.Signal),
		); err != nil {
			return errors.Wrapf(err, "insert evaluation %s", res.Symbol)
		}
	}

	failed := make([]string, 0, len(rec.Failures))
	for sym := range rec.Failures {
		failed = append(failed, sym)
	}
	sort.Strings(failed)
	for _, sym := range failed {
		if _, err := tx.Exec(`INSERT INTO evaluations (cycle_id, timestamp, symbol, error) VALUES (?,?,?,?)`,
			rec.CycleID, ts, sym, rec.Failures[sym],
		); err != nil {
			return errors.Wrapf(err, "insert failure %s", sym)
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (r *SQLiteRecorder) RecordWatchlistEvent(evt *WatchlistEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO watchlist_events (timestamp, symbol, outcome, detail) VALUES (?,?,?,?)`,
		evt.At.Unix(), evt.Symbol, evt.Outcome, evt.Detail,
	)
	return errors.Wrap(err, "insert watchlist event")
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
