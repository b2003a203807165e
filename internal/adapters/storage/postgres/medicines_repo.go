package postgres

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
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM medicines WHERE id = $1`, m.ID).Scan(&exists)
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
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		m.ID,
		m.Name,
		m.Dosage,
		string(m.TimeWindow),
		m.WindowStart,
		m.WindowEnd,
		m.WithFood,
		m.Notes,
		m.PillsRemaining,
		m.PillsPerDose,
		m.LowStockThreshold,
		m.Active,
		m.CreatedAt,
		m.UpdatedAt,
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
			name = $2, dosage = $3, time_window = $4,
			window_start = $5, window_end = $6, with_food = $7,
			notes = $8, pills_remaining = $9, pills_per_dose = $10,
			low_stock_threshold = $11, active = $12, updated_at = $13
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.Dosage,
		string(m.TimeWindow),
		m.WindowStart,
		m.WindowEnd,
		m.WithFood,
		m.Notes,
		m.PillsRemaining,
		m.PillsPerDose,
		m.LowStockThreshold,
		m.Active,
		m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medicines.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM medicine_days WHERE medicine_id = $1`, m.ID); err != nil {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM medicine_days WHERE medicine_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM medicines WHERE id = $1`, id)
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
	COALESCE(string_agg(md.day, ','), '')`

const medicineGroupBy = ` GROUP BY m.id, m.name, m.dosage, m.time_window,
	m.window_start, m.window_end, m.with_food, m.notes, m.pills_remaining,
	m.pills_per_dose, m.low_stock_threshold, m.active, m.created_at, m.updated_at`

func (r *MedicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	if strings.TrimSpace(id) == "" {
		return medicines.Medicine{}, medicines.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines m
		LEFT JOIN medicine_days md ON md.medicine_id = m.id
		WHERE m.id = $1`+medicineGroupBy,
		id)

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
		query += ` WHERE m.active`
	}
	query += medicineGroupBy + ` ORDER BY m.created_at, m.id`

	return r.queryMedicines(ctx, query)
}

func (r *MedicinesRepo) ListLowStock(ctx context.Context) ([]medicines.Medicine, error) {
	return r.queryMedicines(ctx, `
		SELECT `+medicineColumns+`
		FROM medicines m
		LEFT JOIN medicine_days md ON md.medicine_id = m.id
		WHERE m.active AND m.pills_remaining <= m.low_stock_threshold`+
		medicineGroupBy+` ORDER BY m.pills_remaining ASC`)
}

func (r *MedicinesRepo) queryMedicines(ctx context.Context, query string, args ...any) ([]medicines.Medicine, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
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
			`INSERT INTO medicine_days (medicine_id, day) VALUES ($1, $2)`,
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
		m          medicines.Medicine
		window     string
		daysConcat string
	)
	if err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Dosage,
		&window,
		&m.WindowStart,
		&m.WindowEnd,
		&m.WithFood,
		&m.Notes,
		&m.PillsRemaining,
		&m.PillsPerDose,
		&m.LowStockThreshold,
		&m.Active,
		&m.CreatedAt,
		&m.UpdatedAt,
		&daysConcat,
	); err != nil {
		return medicines.Medicine{}, err
	}

	m.TimeWindow = medicines.TimeWindow(window)
	if daysConcat != "" {
		parts := strings.Split(daysConcat, ",")
		m.Days = make([]medicines.Weekday, 0, len(parts))
		for _, p := range parts {
			m.Days = append(m.Days, medicines.Weekday(p))
		}
		medicines.SortDays(m.Days)
	}
	return m, nil
}
