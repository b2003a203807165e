package sqlite

import (
	"context"
	"database/sql"
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
// Un crash en el medio no puede dejar stock decrementado sin entrada de
// ledger ni al revés.
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

	var taken, skipped int
	err = tx.QueryRowContext(ctx,
		`SELECT taken, skipped FROM tracking WHERE medicine_id = ? AND date = ? AND time_window = ?`,
		key.MedicineID, key.Date, string(key.TimeWindow),
	).Scan(&taken, &skipped)

	switch {
	case err == sql.ErrNoRows:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tracking (medicine_id, date, time_window, taken, timestamp, pills_taken)
			VALUES (?, ?, ?, 1, ?, ?)
		`, key.MedicineID, key.Date, string(key.TimeWindow),
			takenAt.Format(time.RFC3339Nano), med.pillsPerDose,
		); err != nil {
			return tracking.TakeResult{}, err
		}

	case err != nil:
		return tracking.TakeResult{}, err

	case taken == 1:
		// Ya tomada: no-op, devolvemos el stock actual sin decrementar de
		// nuevo. No hay mutación, no hay bump.
		return tracking.TakeResult{
			Applied:        false,
			PillsRemaining: med.pillsRemaining,
			LowStock:       med.pillsRemaining <= med.lowStockThreshold,
			MedicineName:   med.name,
		}, tx.Commit()

	case skipped == 1 && !overrideSkip:
		return tracking.TakeResult{}, tracking.ErrSkippedConflict

	default:
		// Skip existente con override: pasa a taken, se limpian los campos
		// de skip para mantener la exclusión mutua.
		if _, err := tx.ExecContext(ctx, `
			UPDATE tracking SET
				taken = 1, timestamp = ?, pills_taken = ?,
				skipped = 0, skip_timestamp = NULL, skip_reason = '', skip_notes = ''
			WHERE medicine_id = ? AND date = ? AND time_window = ?
		`, takenAt.Format(time.RFC3339Nano), med.pillsPerDose,
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
		`UPDATE medicines SET pills_remaining = ? WHERE id = ?`,
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

	var taken int
	err = tx.QueryRowContext(ctx,
		`SELECT taken FROM tracking WHERE medicine_id = ? AND date = ? AND time_window = ?`,
		key.MedicineID, key.Date, string(key.TimeWindow),
	).Scan(&taken)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	if err == nil && taken == 1 {
		return tracking.ErrTakenConflict
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO tracking (medicine_id, date, time_window, taken, skipped, skip_timestamp, skip_reason, skip_notes)
		VALUES (?, ?, ?, 0, 1, ?, ?, ?)
		ON CONFLICT(medicine_id, date, time_window) DO UPDATE SET
			skipped = 1,
			skip_timestamp = excluded.skip_timestamp,
			skip_reason = excluded.skip_reason,
			skip_notes = excluded.skip_notes
	`, key.MedicineID, key.Date, string(key.TimeWindow),
		at.Format(time.RFC3339Nano), reason, notes,
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
		WHERE t.medicine_id = ? AND t.date = ? AND t.time_window = ?
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
		query += ` AND t.medicine_id = ?`
		args = append(args, f.MedicineID)
	}
	if f.From != "" {
		query += ` AND t.date >= ?`
		args = append(args, f.From)
	}
	if f.To != "" {
		query += ` AND t.date <= ?`
		args = append(args, f.To)
	}
	if f.SkippedOnly {
		query += ` AND t.skipped = 1`
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

// medRow es lo mínimo que RecordTaken/RecordSkipped necesitan de la medicina
// dentro de la transacción.
type medRow struct {
	name              string
	pillsRemaining    int
	pillsPerDose      int
	lowStockThreshold int
}

// lockMedicine lee la medicina dentro de la tx (el txlock immediate ya
// serializa escritores). Ausente o inactiva cuentan igual: NotFound.
func lockMedicine(ctx context.Context, tx *sql.Tx, id string) (medRow, error) {
	var (
		med    medRow
		active int
	)
	err := tx.QueryRowContext(ctx, `
		SELECT name, pills_remaining, pills_per_dose, low_stock_threshold, active
		FROM medicines WHERE id = ?
	`, id).Scan(&med.name, &med.pillsRemaining, &med.pillsPerDose, &med.lowStockThreshold, &active)
	if err == sql.ErrNoRows {
		return medRow{}, medicines.ErrNotFound
	}
	if err != nil {
		return medRow{}, err
	}
	if active == 0 {
		return medRow{}, medicines.ErrNotFound
	}
	return med, nil
}

func scanRecord(row rowScanner) (tracking.Record, error) {
	var (
		rec             tracking.Record
		window          string
		taken, skipped  int
		takenTS, skipTS sql.NullString
	)
	if err := row.Scan(
		&rec.MedicineID,
		&rec.Date,
		&window,
		&taken,
		&takenTS,
		&rec.PillsTaken,
		&skipped,
		&skipTS,
		&rec.SkipReason,
		&rec.SkipNotes,
		&rec.MedicineName,
		&rec.Dosage,
	); err != nil {
		return tracking.Record{}, err
	}

	rec.TimeWindow = medicines.TimeWindow(window)
	rec.Taken = taken != 0
	rec.Skipped = skipped != 0
	if takenTS.Valid && takenTS.String != "" {
		t := parseTime(takenTS.String)
		rec.TakenAt = &t
	}
	if skipTS.Valid && skipTS.String != "" {
		t := parseTime(skipTS.String)
		rec.SkippedAt = &t
	}
	return rec, nil
}
