// Package db persists the prediction audit log in SQLite.
package db

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRow is one served prediction.
type PredictionRow struct {
	Airline     string    `json:"airline"`
	FlightType  string    `json:"flight_type"`
	Month       int       `json:"month"`
	PeriodDay   string    `json:"period_day"`
	HighSeason  int       `json:"high_season"`
	Label       int       `json:"delay"`
	Probability float64   `json:"probability"`
	ServedAt    time.Time `json:"served_at"`
}

// Store wraps the SQLite handle. Constructed once in main and injected,
// never package-level state.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database in WAL mode.
func Open(path string) (*Store, error) {
	handle, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        airline TEXT NOT NULL,
        flight_type TEXT NOT NULL,
        month INTEGER NOT NULL,
        period_day TEXT,
        high_season INTEGER,
        label INTEGER NOT NULL,
        probability REAL NOT NULL,
        served_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_served_at ON predictions(served_at);
    `
	if _, err := handle.Exec(query); err != nil {
		handle.Close()
		return nil, err
	}
	return &Store{db: handle}, nil
}

// SavePredictions appends a batch of served predictions in one
// transaction.
func (s *Store) SavePredictions(rows []PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
        INSERT INTO predictions (airline, flight_type, month, period_day, high_season, label, probability, served_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row.Airline, row.FlightType, row.Month, row.PeriodDay, row.HighSeason,
			row.Label, row.Probability, row.ServedAt); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// RecentPredictions returns the newest served predictions, newest first.
func (s *Store) RecentPredictions(limit int) ([]PredictionRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
        SELECT airline, flight_type, month, period_day, high_season, label, probability, served_at
        FROM predictions
        ORDER BY served_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]PredictionRow, 0, limit)
	for rows.Next() {
		var row PredictionRow
		var periodDay sql.NullString
		var highSeason sql.NullInt64
		if err := rows.Scan(&row.Airline, &row.FlightType, &row.Month, &periodDay, &highSeason,
			&row.Label, &row.Probability, &row.ServedAt); err != nil {
			return nil, err
		}
		if periodDay.Valid {
			row.PeriodDay = periodDay.String
		}
		if highSeason.Valid {
			row.HighSeason = int(highSeason.Int64)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Close closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}
