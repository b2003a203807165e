// Package sqlite es el store por defecto en el dispositivo. WAL +
// busy_timeout porque el poller del display y la API web son procesos
// independientes escribiendo sobre el mismo archivo.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Open abre (o crea) la base y asegura el schema.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := "file:" + path +
		"?_txlock=immediate" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(30000)" +
		"&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := ensureSchema(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// tracking no lleva FK a medicines: el ledger sobrevive al borrado de la
// definición (queda huérfano, para auditoría). medicine_days sí cascadea.
const ddl = `
CREATE TABLE IF NOT EXISTS medicines (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  dosage TEXT NOT NULL,
  time_window TEXT NOT NULL,
  window_start TEXT NOT NULL DEFAULT '',
  window_end TEXT NOT NULL DEFAULT '',
  with_food INTEGER NOT NULL DEFAULT 0,
  notes TEXT NOT NULL DEFAULT '',
  pills_remaining INTEGER NOT NULL CHECK (pills_remaining >= 0),
  pills_per_dose INTEGER NOT NULL CHECK (pills_per_dose >= 1),
  low_stock_threshold INTEGER NOT NULL CHECK (low_stock_threshold >= 1),
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
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
  taken INTEGER NOT NULL DEFAULT 0,
  timestamp TEXT,
  pills_taken INTEGER NOT NULL DEFAULT 0,
  skipped INTEGER NOT NULL DEFAULT 0,
  skip_timestamp TEXT,
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
  ON CONFLICT(key) DO NOTHING;
INSERT INTO metadata (key, value) VALUES ('version', '0')
  ON CONFLICT(key) DO NOTHING;
INSERT INTO metadata (key, value) VALUES ('last_updated', '')
  ON CONFLICT(key) DO NOTHING;
`

func ensureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// bumpVersion corre dentro de la transacción de cada escritura: el contador
// y el timestamp avanzan atómicamente con el write que los causó.
func bumpVersion(ctx context.Context, tx *sql.Tx, now time.Time) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE metadata SET value = CAST(value AS INTEGER) + 1 WHERE key = 'version'`,
	); err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE metadata SET value = ? WHERE key = 'last_updated'`,
		now.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("bump last_updated: %w", err)
	}
	return nil
}
