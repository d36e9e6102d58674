package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "stock-monitor/internal/errors"
	"stock-monitor/internal/models"
)

// SQLiteStore implements StateStore using SQLite. The primary key on
// (ticker, kind) plus conditional writes give the atomic per-key update
// that serializes concurrent runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-based alert state store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Last-alert state, one row per (ticker, kind)
	CREATE TABLE IF NOT EXISTS alert_state (
		ticker TEXT NOT NULL,
		kind TEXT NOT NULL,
		last_alert DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (ticker, kind)
	);

	-- Append-only history of fired alerts
	CREATE TABLE IF NOT EXISTS alert_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ticker TEXT NOT NULL,
		kind TEXT NOT NULL,
		magnitude REAL NOT NULL,
		direction TEXT,
		sample_at DATETIME NOT NULL,
		fired_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_alert_log_ticker ON alert_log(ticker);
	CREATE INDEX IF NOT EXISTS idx_alert_log_fired ON alert_log(fired_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the persisted state for (ticker, kind), or nil when no
// alert has fired yet.
func (s *SQLiteStore) Get(ctx context.Context, ticker string, kind models.CandidateKind) (*models.AlertState, error) {
	var lastAlert time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT last_alert FROM alert_state WHERE ticker = ? AND kind = ?
	`, ticker, kind).Scan(&lastAlert)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrPersistence, "reading alert state for %s/%s: %v", ticker, kind, err)
	}

	return &models.AlertState{Ticker: ticker, Kind: kind, LastAlert: lastAlert}, nil
}

// CompareAndSwap writes next iff the stored last-alert still equals prev.
// With prev == nil the write succeeds only when no row exists yet, so two
// concurrent first alerts resolve to a single winner.
func (s *SQLiteStore) CompareAndSwap(ctx context.Context, ticker string, kind models.CandidateKind, prev *time.Time, next time.Time) (bool, error) {
	var res sql.Result
	var err error

	if prev == nil {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO alert_state (ticker, kind, last_alert) VALUES (?, ?, ?)
			ON CONFLICT(ticker, kind) DO NOTHING
		`, ticker, kind, next)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE alert_state SET last_alert = ?, updated_at = CURRENT_TIMESTAMP
			WHERE ticker = ? AND kind = ? AND last_alert = ?
		`, next, ticker, kind, *prev)
	}
	if err != nil {
		return false, apperrors.Wrapf(apperrors.ErrPersistence, "updating alert state for %s/%s: %v", ticker, kind, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrapf(apperrors.ErrPersistence, "updating alert state for %s/%s: %v", ticker, kind, err)
	}
	return rows == 1, nil
}

// RecordAlert appends a fired alert to the history log.
func (s *SQLiteStore) RecordAlert(ctx context.Context, alert models.FiredAlert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_log (ticker, kind, magnitude, direction, sample_at, fired_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, alert.Ticker, alert.Kind, alert.Magnitude, alert.Direction, alert.SampleAt, alert.FiredAt)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrPersistence, "recording alert for %s/%s: %v", alert.Ticker, alert.Kind, err)
	}
	return nil
}

// RecentAlerts returns fired alerts matching the filter, newest first.
func (s *SQLiteStore) RecentAlerts(ctx context.Context, filter HistoryFilter) ([]models.FiredAlert, error) {
	query := "SELECT ticker, kind, magnitude, COALESCE(direction, ''), sample_at, fired_at FROM alert_log WHERE 1=1"
	args := []interface{}{}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, filter.Ticker)
	}
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, filter.Kind)
	}
	if !filter.Since.IsZero() {
		query += " AND fired_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY fired_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrPersistence, "querying alert history: %v", err)
	}
	defer rows.Close()

	var alerts []models.FiredAlert
	for rows.Next() {
		var a models.FiredAlert
		if err := rows.Scan(&a.Ticker, &a.Kind, &a.Magnitude, &a.Direction, &a.SampleAt, &a.FiredAt); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrPersistence, "scanning alert history: %v", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
