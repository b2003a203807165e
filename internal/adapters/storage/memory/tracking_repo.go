package memory

import (
	"context"
	"sort"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/tracking"
)

type trackingRepo struct {
	s *Store
}

func NewTrackingRepo(s *Store) tracking.Repository {
	return &trackingRepo{s: s}
}

func (r *trackingRepo) RecordTaken(ctx context.Context, key tracking.Key, takenAt time.Time, overrideSkip bool) (tracking.TakeResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	med, ok := r.s.meds[key.MedicineID]
	if !ok || !med.Active {
		return tracking.TakeResult{}, medicines.ErrNotFound
	}

	rec, exists := r.s.records[key]
	switch {
	case exists && rec.Taken:
		// Ya tomada: no-op, sin decremento ni bump.
		return tracking.TakeResult{
			Applied:        false,
			PillsRemaining: med.PillsRemaining,
			LowStock:       med.LowStock(),
			MedicineName:   med.Name,
		}, nil

	case exists && rec.Skipped && !overrideSkip:
		return tracking.TakeResult{}, tracking.ErrSkippedConflict
	}

	at := takenAt
	rec = tracking.Record{
		MedicineID: key.MedicineID,
		Date:       key.Date,
		TimeWindow: key.TimeWindow,
		Taken:      true,
		TakenAt:    &at,
		PillsTaken: med.PillsPerDose,
	}
	r.s.records[key] = rec

	med.PillsRemaining -= med.PillsPerDose
	if med.PillsRemaining < 0 {
		med.PillsRemaining = 0
	}
	r.s.meds[key.MedicineID] = med
	r.s.bump(takenAt)

	return tracking.TakeResult{
		Applied:        true,
		PillsRemaining: med.PillsRemaining,
		LowStock:       med.LowStock(),
		MedicineName:   med.Name,
	}, nil
}

func (r *trackingRepo) RecordSkipped(ctx context.Context, key tracking.Key, reason, notes string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	med, ok := r.s.meds[key.MedicineID]
	if !ok || !med.Active {
		return medicines.ErrNotFound
	}

	rec, exists := r.s.records[key]
	if exists && rec.Taken {
		return tracking.ErrTakenConflict
	}

	ts := at
	rec.MedicineID = key.MedicineID
	rec.Date = key.Date
	rec.TimeWindow = key.TimeWindow
	rec.Skipped = true
	rec.SkippedAt = &ts
	rec.SkipReason = reason
	rec.SkipNotes = notes
	r.s.records[key] = rec
	r.s.bump(at)
	return nil
}

func (r *trackingRepo) Get(ctx context.Context, key tracking.Key) (tracking.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.records[key]
	if !ok {
		return tracking.Record{}, tracking.ErrNoRecord
	}
	return r.denormalize(rec), nil
}

func (r *trackingRepo) List(ctx context.Context, f tracking.Filter) ([]tracking.Record, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]tracking.Record, 0)
	for _, rec := range r.s.records {
		if f.MedicineID != "" && rec.MedicineID != f.MedicineID {
			continue
		}
		if f.From != "" && rec.Date < f.From {
			continue
		}
		if f.To != "" && rec.Date > f.To {
			continue
		}
		if f.SkippedOnly && !rec.Skipped {
			continue
		}
		out = append(out, r.denormalize(rec))
	}

	// Fecha descendente, y dentro del día el evento más reciente primero.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return eventTime(out[i]).After(eventTime(out[j]))
	})
	return out, nil
}

// denormalize completa nombre y dosis desde la definición si todavía existe;
// las entradas huérfanas salen con los campos vacíos, como el LEFT JOIN.
func (r *trackingRepo) denormalize(rec tracking.Record) tracking.Record {
	if med, ok := r.s.meds[rec.MedicineID]; ok {
		rec.MedicineName = med.Name
		rec.Dosage = med.Dosage
	}
	return rec
}

func eventTime(rec tracking.Record) time.Time {
	if rec.TakenAt != nil {
		return *rec.TakenAt
	}
	if rec.SkippedAt != nil {
		return *rec.SkippedAt
	}
	return time.Time{}
}
