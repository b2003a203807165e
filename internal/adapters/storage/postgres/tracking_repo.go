package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/tracking"
)

type TrackingRepo struct {
	db *sql.DB
}

func NewTrackingRepo(db *sql.DB) *TrackingRepo {
	return &TrackingRepo{db: db}
}

// RecordTaken hace todo en una transacción: guard de idempotencia,
// upsert del ledger, decremento de stock con piso en 0 y bump de versión.
func (r *TrackingRepo) RecordTaken(ctx context.Context, key tracking.Key, takenAt time.Time, overrideSkip bool) (tracking.TakeResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return tracking.TakeResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	med, err := lockMedicine(ctx, tx, key.MedicineID)
	if err != nil {
		return tracking.TakeResult{}, err
	}

	var taken, skipped bool
	err = tx.QueryRowContext(ctx,
		`SELECT taken, skipped FROM tracking WHERE medicine_id = $1 AND date = $2 AND time_window = $3 FOR UPDATE`,
		key.MedicineID, key.Date, string(key.TimeWindow),
	).Scan(&taken, &skipped)

	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracking (medicine_id, date, time_window, taken, timestamp, pills_taken)
			VALUES ($1, $2, $3, TRUE, $4, $5)
		`, key.MedicineID, key.Date, string(key.TimeWindow),
			takenAt, med.pillsPerDose,
		); err != nil {
			return tracking.TakeResult{}, err
		}

	case err != nil:
		return tracking.TakeResult{}, err

	case taken:
		// Ya tomada: no-op, sin decremento ni bump.
		return tracking.TakeResult{
			Applied:        false,
			PillsRemaining: med.pillsRemaining,
			LowStock:       med.pillsRemaining <= med.lowStockThreshold,
			MedicineName:   med.name,
		}, tx.Commit()

	case skipped && !overrideSkip:
		return tracking.TakeResult{}, tracking.ErrSkippedConflict

	default:
		if _, err := tx.ExecContext(ctx, `
			UPDATE tracking SET
				taken = TRUE, timestamp = $1, pills_taken = $2,
				skipped = FALSE, skip_timestamp = NULL, skip_reason = '', skip_notes = ''
			WHERE medicine_id = $3 AND date = $4 AND time_window = $5
		`, takenAt, med.pillsPerDose,
			key.MedicineID, key.Date, string(key.TimeWindow),
		); err != nil {
			return tracking.TakeResult{}, err
		}
	}

	newCount := med.pillsRemaining - med.pillsPerDose
	if newCount < 0 {
		newCount = 0
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE medicines SET pills_remaining = $1 WHERE id = $2`,
		newCount, key.MedicineID,
	); err != nil {
		return tracking.TakeResult{}, err
	}

	if err := bumpVersion(ctx, tx, takenAt); err != nil {
		return tracking.TakeResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return tracking.TakeResult{}, err
	}

	return tracking.TakeResult{
		Applied:        true,
		PillsRemaining: newCount,
		LowStock:       newCount <= med.lowStockThreshold,
		MedicineName:   med.name,
	}, nil
}

// RecordSkipped no toca inventario. Re-skip actualiza motivo y timestamp.
func (r *TrackingRepo) RecordSkipped(ctx context.Context, key tracking.Key, reason, notes string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := lockMedicine(ctx, tx, key.MedicineID); err != nil {
		return err
	}

	var taken bool
	err = tx.QueryRowContext(ctx,
		`SELECT taken FROM tracking WHERE medicine_id = $1 AND date = $2 AND time_window = $3 FOR UPDATE`,
		key.MedicineID, key.Date, string(key.TimeWindow),
	).Scan(&taken)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && taken {
		return tracking.ErrTakenConflict
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tracking (medicine_id, date, time_window, taken, skipped, skip_timestamp, skip_reason, skip_notes)
		VALUES ($1, $2, $3, FALSE, TRUE, $4, $5, $6)
		ON CONFLICT (medicine_id, date, time_window) DO UPDATE SET
			skipped = TRUE,
			skip_timestamp = excluded.skip_timestamp,
			skip_reason = excluded.skip_reason,
			skip_notes = excluded.skip_notes
	`, key.MedicineID, key.Date, string(key.TimeWindow),
		at, reason, notes,
	); err != nil {
		return err
	}

	if err := bumpVersion(ctx, tx, at); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TrackingRepo) Get(ctx context.Context, key tracking.Key) (tracking.Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT t.medicine_id, t.date, t.time_window,
			t.taken, t.timestamp, t.pills_taken,
			t.skipped, t.skip_timestamp, t.skip_reason, t.skip_notes,
			COALESCE(m.name, ''), COALESCE(m.dosage, '')
		FROM tracking t
		LEFT JOIN medicines m ON m.id = t.medicine_id
		WHERE t.medicine_id = $1 AND t.date = $2 AND t.time_window = $3
	`, key.MedicineID, key.Date, string(key.TimeWindow))

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return tracking.Record{}, tracking.ErrNoRecord
	}
	return rec, err
}

func (r *TrackingRepo) List(ctx context.Context, f tracking.Filter) ([]tracking.Record, error) {
	// LEFT JOIN: las entradas huérfanas (medicina borrada) también salen.
	query := `
		SELECT t.medicine_id, t.date, t.time_window,
			t.taken, t.timestamp, t.pills_taken,
			t.skipped, t.skip_timestamp, t.skip_reason, t.skip_notes,
			COALESCE(m.name, ''), COALESCE(m.dosage, '')
		FROM tracking t
		LEFT JOIN medicines m ON m.id = t.medicine_id
		WHERE 1=1`
	args := make([]any, 0, 4)

	if f.MedicineID != "" {
		args = append(args, f.MedicineID)
		query += ` AND t.medicine_id = ` + placeholder(len(args))
	}
	if f.From != "" {
		args = append(args, f.From)
		query += ` AND t.date >= ` + placeholder(len(args))
	}
	if f.To != "" {
		args = append(args, f.To)
		query += ` AND t.date <= ` + placeholder(len(args))
	}
	if f.SkippedOnly {
		query += ` AND t.skipped`
	}
	query += ` ORDER BY t.date DESC, COALESCE(t.timestamp, t.skip_timestamp) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]tracking.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// medRow es lo mínimo que RecordTaken/RecordSkipped necesitan de la medicina
// dentro de la transacción.
type medRow struct {
	name              string
	pillsRemaining    int
	pillsPerDose      int
	lowStockThreshold int
}

// lockMedicine toma el row lock de la medicina para serializar el decremento
// de stock. Ausente o inactiva cuentan igual: NotFound.
func lockMedicine(ctx context.Context, tx *sql.Tx, id string) (medRow, error) {
	var (
		med    medRow
		active bool
	)
	err := tx.QueryRowContext(ctx, `
		SELECT name, pills_remaining, pills_per_dose, low_stock_threshold, active
		FROM medicines WHERE id = $1
		FOR UPDATE
	`, id).Scan(&med.name, &med.pillsRemaining, &med.pillsPerDose, &med.lowStockThreshold, &active)
	if err == sql.ErrNoRows {
		return medRow{}, medicines.ErrNotFound
	}
	if err != nil {
		return medRow{}, err
	}
	if !active {
		return medRow{}, medicines.ErrNotFound
	}
	return med, nil
}

func scanRecord(row rowScanner) (tracking.Record, error) {
	var (
		rec             tracking.Record
		window          string
		takenTS, skipTS sql.NullTime
	)
	if err := row.Scan(
		&rec.MedicineID,
		&rec.Date,
		&window,
		&rec.Taken,
		&takenTS,
		&rec.PillsTaken,
		&rec.Skipped,
		&skipTS,
		&rec.SkipReason,
		&rec.SkipNotes,
		&rec.MedicineName,
		&rec.Dosage,
	); err != nil {
		return tracking.Record{}, err
	}

	rec.TimeWindow = medicines.TimeWindow(window)
	if takenTS.Valid {
		t := takenTS.Time
		rec.TakenAt = &t
	}
	if skipTS.Valid {
		t := skipTS.Time
		rec.SkippedAt = &t
	}
	return rec, nil
}
