// Package store archives normalized daily costs across runs so a later
// analysis can report against more history than one API window. This
// is a durable archive of observations, not the Aggregator's query
// cache — that one stays in memory and dies with the process.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tasnim.dev/costlens/internal/cost"
)

// Store is a sqlite-backed daily cost archive.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path and runs migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging store: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrating store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS daily_costs (
			date TEXT NOT NULL,
			cost REAL NOT NULL,
			currency TEXT NOT NULL DEFAULT 'USD',
			provenance TEXT NOT NULL DEFAULT 'real',
			recorded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_costs_date ON daily_costs(date)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// SaveSeries upserts every point of a series. Synthetic series are
// refused: substituted data must never shadow real observations.
func (s *Store) SaveSeries(series *cost.CostSeries) error {
	if series == nil {
		return nil
	}
	if series.Synthetic() {
		return fmt.Errorf("refusing to archive a synthetic series")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_costs (date, cost, currency, provenance)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			cost = excluded.cost,
			currency = excluded.currency,
			recorded_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range series.Points {
		if _, err := stmt.Exec(p.Date.Format("2006-01-02"), p.Cost, p.Currency, string(series.Provenance)); err != nil {
			return fmt.Errorf("upserting %s: %w", p.Date.Format("2006-01-02"), err)
		}
	}
	return tx.Commit()
}

// LoadRange returns archived points between start and end inclusive,
// in date order. Days never archived are absent, not zero.
func (s *Store) LoadRange(start, end time.Time) ([]cost.CostPoint, error) {
	rows, err := s.db.Query(`
		SELECT date, cost, currency FROM daily_costs
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC
	`, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("querying range: %w", err)
	}
	defer rows.Close()

	var points []cost.CostPoint
	for rows.Next() {
		var dateStr, currency string
		var c float64
		if err := rows.Scan(&dateStr, &c, &currency); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		d, err := cost.NormalizeDate(dateStr)
		if err != nil {
			return nil, err
		}
		points = append(points, cost.CostPoint{Date: d, Cost: c, Currency: currency})
	}
	return points, rows.Err()
}
