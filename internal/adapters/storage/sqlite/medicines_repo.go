package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"medicine-tracker/internal/domain/medicines"
)

type MedicinesRepo struct {
	db *sql.DB
}

func NewMedicinesRepo(db *sql.DB) *MedicinesRepo {
	return &MedicinesRepo{db: db}
}

func (r *MedicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM medicines WHERE id = ?`, m.ID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return medicines.ErrDuplicateID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO medicines (
			id, name, dosage, time_window, window_start, window_end,
			with_food, notes, pills_remaining, pills_per_dose,
			low_stock_threshold, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ID,
		m.Name,
		m.Dosage,
		string(m.TimeWindow),
		m.WindowStart,
		m.WindowEnd,
		boolToInt(m.WithFood),
		m.Notes,
		m.PillsRemaining,
		m.PillsPerDose,
		m.LowStockThreshold,
		boolToInt(m.Active),
		m.CreatedAt.Format(time.RFC3339Nano),
		m.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}

	if err := insertDays(ctx, tx, m.ID, m.Days); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx, m.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MedicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE medicines SET
			name = ?, dosage = ?, time_window = ?,
			window_start = ?, window_end = ?, with_food = ?,
			notes = ?, pills_remaining = ?, pills_per_dose = ?,
			low_stock_threshold = ?, active = ?, updated_at = ?
		WHERE id = ?
	`,
		m.Name,
		m.Dosage,
		string(m.TimeWindow),
		m.WindowStart,
		m.WindowEnd,
		boolToInt(m.WithFood),
		m.Notes,
		m.PillsRemaining,
		m.PillsPerDose,
		m.LowStockThreshold,
		boolToInt(m.Active),
		m.UpdatedAt.Format(time.RFC3339Nano),
		m.ID,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}

	// Días: delete + re-insert, igual que el resto del update.
	if _, err := tx.ExecContext(ctx, `DELETE FROM medicine_days WHERE medicine_id = ?`, m.ID); err != nil {
		return err
	}
	if err := insertDays(ctx, tx, m.ID, m.Days); err != nil {
		return err
	}
	if err := bumpVersion(ctx, tx, m.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *MedicinesRepo) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// El ledger de tracking queda; solo cae la definición y sus días.
	if _, err := tx.ExecContext(ctx, `DELETE FROM medicine_days WHERE medicine_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}

	if err := bumpVersion(ctx, tx, time.Now()); err != nil {
		return err
	}
	return tx.Commit()
}

const medicineColumns = `
	m.id, m.name, m.dosage, m.time_window, m.window_start, m.window_end,
	m.with_food, m.notes, m.pills_remaining, m.pills_per_dose,
	m.low_stock_threshold, m.active, m.created_at, m.updated_at,
	COALESCE(GROUP_CONCAT(md.day), '')`

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	if strings.TrimSpace(id) == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines m
		LEFT JOIN medicine_days md ON md.medicine_id = m.id
		WHERE m.id = ?
		GROUP BY m.id
	`, id)

	m, err := scanMedicine(row)
	if err == sql.ErrNoRows {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return m, err
}

func (r *MedicinesRepo) List(ctx context.Context, activeOnly bool) ([]medicines.Medicine, error) {
	query := `
		SELECT ` + medicineColumns + `
		FROM medicines m
		LEFT JOIN medicine_days md ON md.medicine_id = m.id`
	if activeOnly {
		query += ` WHERE m.active = 1`
	}
	// Orden de inserción.
	query += ` GROUP BY m.id ORDER BY m.created_at, m.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MedicinesRepo) ListLowStock(ctx context.Context) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines m
		LEFT JOIN medicine_days md ON md.medicine_id = m.id
		WHERE m.active = 1 AND m.pills_remaining <= m.low_stock_threshold
		GROUP BY m.id
		ORDER BY m.pills_remaining ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]medicines.Medicine, 0)
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func insertDays(ctx context.Context, tx *sql.Tx, medicineID string, days []medicines.Weekday) error {
	for _, d := range days {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO medicine_days (medicine_id, day) VALUES (?, ?)`,
			medicineID, string(d),
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedicine(row rowScanner) (medicines.Medicine, error) {
	var (
		m                    medicines.Medicine
		window               string
		withFood, active     int
		createdAt, updatedAt string
		daysConcat           string
	)
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Dosage,
		&window,
		&m.WindowStart,
		&m.WindowEnd,
		&withFood,
		&m.Notes,
		&m.PillsRemaining,
		&m.PillsPerDose,
		&m.LowStockThreshold,
		&active,
		&createdAt,
		&updatedAt,
		&daysConcat,
	); err != nil {
		return medicines.Medicine{}, err
	}

	m.TimeWindow = medicines.TimeWindow(window)
	m.WithFood = withFood != 0
	m.Active = active != 0
	m.CreatedAt = parseTime(createdAt)
	m.UpdatedAt = parseTime(updatedAt)

	if daysConcat != "" {
		parts := strings.Split(daysConcat, ",")
		m.Days = make([]medicines.Weekday, 0, len(parts))
		for _, p := range parts {
			m.Days = append(m.Days, medicines.Weekday(p))
		}
		// GROUP_CONCAT no garantiza orden.
		medicines.SortDays(m.Days)
	}

	return m, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
