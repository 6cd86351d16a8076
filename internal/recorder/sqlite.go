package recorder

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jwtly10/crossbot/internal/backtest"
	"github.com/jwtly10/crossbot/internal/optimizer"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder stores backtests and sweeps in a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("SQLite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtests (
			id                TEXT PRIMARY KEY,
			timestamp         INTEGER NOT NULL,
			symbol            TEXT,
			interval          TEXT,
			bars              INTEGER,
			short_window      INTEGER,
			long_window       INTEGER,
			rsi_overbought    REAL,
			bollinger_period  INTEGER,
			bollinger_stddev  REAL,
			trailing_stop     REAL,
			initial_equity    REAL,
			final_equity      REAL,
			trade_count       INTEGER,
			performance_pct   REAL,
			insufficient_data INTEGER,
			final_state       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtests_ts ON backtests(timestamp)`,

		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			backtest_id TEXT NOT NULL REFERENCES backtests(id),
			trade_no    INTEGER,
			entry_time  INTEGER,
			exit_time   INTEGER,
			entry_price REAL,
			exit_price  REAL,
			quantity    REAL,
			pnl         REAL,
			pnl_percent REAL,
			exit_reason TEXT,
			open        INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_backtest ON trades(backtest_id)`,

		`CREATE TABLE IF NOT EXISTS sweeps (
			id             TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			symbol         TEXT,
			interval       TEXT,
			bars           INTEGER,
			initial_equity REAL,
			evaluated      INTEGER,
			skipped        INTEGER,
			best_params    TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sweeps_ts ON sweeps(timestamp)`,

		`CREATE TABLE IF NOT EXISTS sweep_results (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			sweep_id          TEXT NOT NULL REFERENCES sweeps(id),
			rank              INTEGER,
			short_window      INTEGER,
			long_window       INTEGER,
			rsi_overbought    REAL,
			bollinger_period  INTEGER,
			bollinger_stddev  REAL,
			trailing_stop     REAL,
			final_equity      REAL,
			trade_count       INTEGER,
			performance_pct   REAL,
			insufficient_data INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sweep_results_sweep ON sweep_results(sweep_id, rank)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordBacktest stores one run and its trade log, returning the generated ID.
func (r *SQLiteRecorder) RecordBacktest(m Market, result *backtest.RunResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.NewString()
	p := result.Params

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO backtests
		(id, timestamp, symbol, interval, bars,
		 short_window, long_window, rsi_overbought, bollinger_period, bollinger_stddev, trailing_stop,
		 initial_equity, final_equity, trade_count, performance_pct, insufficient_data, final_state)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		id, time.Now().Unix(), m.Symbol, m.Interval, m.Bars,
		p.ShortWindow, p.LongWindow, p.RSIOverbought, p.BollingerPeriod, p.BollingerStdDev, p.TrailingStop,
		result.InitialEquity, result.FinalEquity, result.TradeCount, result.PerformancePct,
		result.InsufficientData, string(result.FinalState),
	)
	if err != nil {
		return "", fmt.Errorf("insert backtest: %w", err)
	}

	for _, t := range result.Trades {
		_, err = tx.Exec(`INSERT INTO trades
			(backtest_id, trade_no, entry_time, exit_time, entry_price, exit_price,
			 quantity, pnl, pnl_percent, exit_reason, open)
			VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
			id, t.ID, t.EntryTime.Unix(), t.ExitTime.Unix(), t.EntryPrice, t.ExitPrice,
			t.Quantity, t.PnL, t.PnLPercent, t.ExitReason, t.Open,
		)
		if err != nil {
			return "", fmt.Errorf("insert trade %d: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecordSweep stores a sweep summary and every ranked result under report.ID.
func (r *SQLiteRecorder) RecordSweep(m Market, report *optimizer.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best sql.NullString
	if p, ok := report.Best(); ok {
		best = sql.NullString{String: p.String(), Valid: true}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO sweeps
		(id, timestamp, symbol, interval, bars, initial_equity, evaluated, skipped, best_params)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		report.ID, time.Now().Unix(), m.Symbol, m.Interval, m.Bars,
		report.InitialEquity, report.Evaluated, len(report.Skipped), best,
	)
	if err != nil {
		return fmt.Errorf("insert sweep: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO sweep_results
		(sweep_id, rank, short_window, long_window, rsi_overbought, bollinger_period, bollinger_stddev,
		 trailing_stop, final_equity, trade_count, performance_pct, insufficient_data)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare sweep result: %w", err)
	}
	defer stmt.Close()

	for i, res := range report.Results {
		if err := insertResult(stmt, report.ID, i+1, res); err != nil {
			return fmt.Errorf("insert sweep result %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.Info("Recorded sweep", "id", report.ID, "results", len(report.Results))
	return nil
}

func insertResult(stmt *sql.Stmt, sweepID string, rank int, res *backtest.RunResult) error {
	p := res.Params
	_, err := stmt.Exec(sweepID, rank,
		p.ShortWindow, p.LongWindow, p.RSIOverbought, p.BollingerPeriod, p.BollingerStdDev, p.TrailingStop,
		res.FinalEquity, res.TradeCount, res.PerformancePct, res.InsufficientData,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
