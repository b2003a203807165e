// Package postgres es el store alternativo para despliegues fuera del
// dispositivo (API corriendo en un server con Postgres). Mismos puertos
// que sqlite, seleccionado por DB_DSN.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre un pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Mismo layout que el schema sqlite; tracking sin FK para que el ledger
// sobreviva al borrado de la medicina.
const ddl = `
CREATE TABLE IF NOT EXISTS medicines (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  dosage TEXT NOT NULL,
  time_window TEXT NOT NULL,
  window_start TEXT NOT NULL DEFAULT '',
  window_end TEXT NOT NULL DEFAULT '',
  with_food BOOLEAN NOT NULL DEFAULT FALSE,
  notes TEXT NOT NULL DEFAULT '',
  pills_remaining INTEGER NOT NULL CHECK (pills_remaining >= 0),
  pills_per_dose INTEGER NOT NULL CHECK (pills_per_dose >= 1),
  low_stock_threshold INTEGER NOT NULL CHECK (low_stock_threshold >= 1),
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS medicine_days (
  medicine_id TEXT NOT NULL REFERENCES medicines(id) ON DELETE CASCADE,
  day TEXT NOT NULL,
  PRIMARY KEY (medicine_id, day)
);

CREATE TABLE IF NOT EXISTS tracking (
  medicine_id TEXT NOT NULL,
  date TEXT NOT NULL,
  time_window TEXT NOT NULL,
  taken BOOLEAN NOT NULL DEFAULT FALSE,
  timestamp TIMESTAMPTZ,
  pills_taken INTEGER NOT NULL DEFAULT 0,
  skipped BOOLEAN NOT NULL DEFAULT FALSE,
  skip_timestamp TIMESTAMPTZ,
  skip_reason TEXT NOT NULL DEFAULT '',
  skip_notes TEXT NOT NULL DEFAULT '',
  PRIMARY KEY (medicine_id, date, time_window)
);

CREATE INDEX IF NOT EXISTS idx_tracking_date ON tracking(date);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);

INSERT INTO metadata (key, value) VALUES ('schema_version', '1')
  ON CONFLICT (key) DO NOTHING;
INSERT INTO metadata (key, value) VALUES ('version', '0')
  ON CONFLICT (key) DO NOTHING;
INSERT INTO metadata (key, value) VALUES ('last_updated', '')
  ON CONFLICT (key) DO NOTHING;
`

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE metadata SET value = (value::BIGINT + 1)::TEXT WHERE key = 'version'`,
	); err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE metadata SET value = $1 WHERE key = 'last_updated'`,
		now.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("bump last_updated: %w", err)
	}
	return nil
}
