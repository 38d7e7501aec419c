// Package storage provides SQLite-backed persistence for the cross-run scan
// state: posted notification keys, the rolling trade window, and per-cluster
// notification history.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sweepwatch/engine/internal/models"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite database holding one ScanState.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/sweepwatch/state.db.
func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "sweepwatch", "state.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posted (
			key       TEXT PRIMARY KEY,
			posted_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recent_window (
			symbol        TEXT NOT NULL,
			side          TEXT NOT NULL,
			strike        REAL NOT NULL,
			expiration    TEXT NOT NULL,
			bid           REAL,
			ask           REAL,
			last          REAL,
			volume        INTEGER NOT NULL,
			open_interest INTEGER NOT NULL,
			vol_oi        REAL NOT NULL,
			premium       REAL NOT NULL,
			moneyness     TEXT NOT NULL,
			trade_time    TEXT,
			observed_at   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_window_observed_at ON recent_window(observed_at)`,
		`CREATE TABLE IF NOT EXISTS cluster_history (
			key              TEXT PRIMARY KEY,
			symbol           TEXT NOT NULL,
			side             TEXT NOT NULL,
			strike_lo        REAL NOT NULL,
			strike_hi        REAL NOT NULL,
			exp_lo           TEXT NOT NULL,
			exp_hi           TEXT NOT NULL,
			premium_sum      REAL NOT NULL,
			last_notified_at INTEGER NOT NULL,
			fingerprints     TEXT NOT NULL DEFAULT '[]'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the full scan state. Missing rows produce an empty state; a
// missing database file was already created empty by New.
func (s *Store) Load() (*models.ScanState, error) {
	state := models.NewScanState()

	rows, err := s.db.Query(`SELECT key, posted_at FROM posted`)
	if err != nil {
		return nil, fmt.Errorf("failed to query posted keys: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var postedAt int64
		if err := rows.Scan(&key, &postedAt); err != nil {
			return nil, fmt.Errorf("failed to scan posted key: %w", err)
		}
		state.Posted[key] = time.UnixMilli(postedAt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if state.Window, err = s.loadWindow(); err != nil {
		return nil, err
	}
	if state.ClusterHistory, err = s.loadClusterHistory(); err != nil {
		return nil, err
	}
	return state, nil
}

func (s *Store) loadWindow() ([]models.WindowEntry, error) {
	rows, err := s.db.Query(`
		SELECT symbol, side, strike, expiration, bid, ask, last,
		       volume, open_interest, vol_oi, premium, moneyness, trade_time, observed_at
		FROM recent_window ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query window: %w", err)
	}
	defer rows.Close()

	var window []models.WindowEntry
	for rows.Next() {
		var e models.WindowEntry
		var side string
		var bid, ask, last sql.NullFloat64
		var tradeTime sql.NullString
		var observedAt int64
		err := rows.Scan(
			&e.Trade.Symbol, &side, &e.Trade.Strike, &e.Trade.Expiration,
			&bid, &ask, &last,
			&e.Trade.Volume, &e.Trade.OpenInterest, &e.Trade.VolOIRatio,
			&e.Trade.Premium, &e.Trade.Moneyness, &tradeTime, &observedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan window entry: %w", err)
		}
		e.Trade.Side = models.Side(side)
		e.Trade.Bid = nullToNaN(bid)
		e.Trade.Ask = nullToNaN(ask)
		e.Trade.Last = nullToNaN(last)
		e.Trade.TradeTime = tradeTime.String
		e.ObservedAt = time.UnixMilli(observedAt)
		window = append(window, e)
	}
	return window, rows.Err()
}

func (s *Store) loadClusterHistory() (map[models.ClusterKey]models.ClusterRecord, error) {
	rows, err := s.db.Query(`
		SELECT symbol, side, strike_lo, strike_hi, exp_lo, exp_hi,
		       premium_sum, last_notified_at, fingerprints
		FROM cluster_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster history: %w", err)
	}
	defer rows.Close()

	history := make(map[models.ClusterKey]models.ClusterRecord)
	for rows.Next() {
		var key models.ClusterKey
		var side string
		var rec models.ClusterRecord
		var notifiedAt int64
		var fingerprintsJSON string
		err := rows.Scan(
			&key.Symbol, &side, &key.StrikeLo, &key.StrikeHi, &key.ExpLo, &key.ExpHi,
			&rec.PremiumSum, &notifiedAt, &fingerprintsJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster record: %w", err)
		}
		if err := json.Unmarshal([]byte(fingerprintsJSON), &rec.Fingerprints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cluster fingerprints: %w", err)
		}
		key.Side = models.Side(side)
		rec.LastNotifiedAt = time.UnixMilli(notifiedAt)
		history[key] = rec
	}
	return history, rows.Err()
}

// Save overwrites the persisted state in a single transaction. A run that
// fails before reaching Save leaves the previous state intact.
func (s *Store) Save(state *models.ScanState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"posted", "recent_window", "cluster_history"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for key, ts := range state.Posted {
		if _, err := tx.Exec(`INSERT INTO posted (key, posted_at) VALUES (?,?)`,
			key, ts.UnixMilli()); err != nil {
			return fmt.Errorf("failed to insert posted key: %w", err)
		}
	}

	for _, e := range state.Window {
		_, err := tx.Exec(`
			INSERT INTO recent_window
				(symbol, side, strike, expiration, bid, ask, last,
				 volume, open_interest, vol_oi, premium, moneyness, trade_time, observed_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			e.Trade.Symbol, string(e.Trade.Side), e.Trade.Strike, e.Trade.Expiration,
			naNToNull(e.Trade.Bid), naNToNull(e.Trade.Ask), naNToNull(e.Trade.Last),
			e.Trade.Volume, e.Trade.OpenInterest, e.Trade.VolOIRatio,
			e.Trade.Premium, e.Trade.Moneyness, e.Trade.TradeTime, e.ObservedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert window entry: %w", err)
		}
	}

	for key, rec := range state.ClusterHistory {
		fingerprints := rec.Fingerprints
		if fingerprints == nil {
			fingerprints = []string{}
		}
		fingerprintsJSON, err := json.Marshal(fingerprints)
		if err != nil {
			return fmt.Errorf("failed to marshal cluster fingerprints: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO cluster_history
				(key, symbol, side, strike_lo, strike_hi, exp_lo, exp_hi,
				 premium_sum, last_notified_at, fingerprints)
			VALUES (?,?,?,?,?,?,?,?,?,?)`,
			key.String(), key.Symbol, string(key.Side),
			key.StrikeLo, key.StrikeHi, key.ExpLo, key.ExpHi,
			rec.PremiumSum, rec.LastNotifiedAt.UnixMilli(), string(fingerprintsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert cluster record: %w", err)
		}
	}

	return tx.Commit()
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func naNToNull(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
