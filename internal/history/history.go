package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// Record is one fired alert, kept for auditing. This is not a price
// time series: only runs that fired are recorded.
type Record struct {
	ID        int64
	FiredAt   time.Time
	Symbol    string
	Mode      string
	Price     decimal.Decimal
	Delta     decimal.Decimal
	Level     int64
	Direction string
}

// Store is an append-mostly sqlite log of fired alerts.
type Store struct {
	db *sql.DB
}

// Open opens or creates the alert history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `CREATE TABLE IF NOT EXISTS alerts (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	fired_at  DATETIME NOT NULL,
	symbol    TEXT NOT NULL,
	mode      TEXT NOT NULL,
	price     TEXT NOT NULL,
	delta     TEXT NOT NULL,
	level     INTEGER NOT NULL DEFAULT 0,
	direction TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_alerts_fired_at ON alerts(fired_at);`

func migrate(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// RecordAlert appends one fired alert and returns its row id.
func (s *Store) RecordAlert(ctx context.Context, rec Record) (int64, error) {
	if rec.FiredAt.IsZero() {
		rec.FiredAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (fired_at, symbol, mode, price, delta, level, direction)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.FiredAt.UTC(), rec.Symbol, rec.Mode,
		rec.Price.String(), rec.Delta.String(), rec.Level, rec.Direction,
	)
	if err != nil {
		return 0, fmt.Errorf("insert alert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read alert record id: %w", err)
	}
	return id, nil
}

// ListRecent returns up to limit fired alerts, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fired_at, symbol, mode, price, delta, level, direction
		 FROM alerts ORDER BY fired_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alert records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec          Record
			price, delta string
		)
		if err := rows.Scan(&rec.ID, &rec.FiredAt, &rec.Symbol, &rec.Mode, &price, &delta, &rec.Level, &rec.Direction); err != nil {
			return nil, fmt.Errorf("scan alert record: %w", err)
		}
		if rec.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse recorded price: %w", err)
		}
		if rec.Delta, err = decimal.NewFromString(delta); err != nil {
			return nil, fmt.Errorf("parse recorded delta: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
