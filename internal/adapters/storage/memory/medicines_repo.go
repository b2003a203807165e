package memory

import (
	"context"
	"sort"
	"time"

	"medicine-tracker/internal/domain/medicines"
)

type medicinesRepo struct {
	s *Store
}

func NewMedicinesRepo(s *Store) medicines.Repository {
	return &medicinesRepo{s: s}
}

func (r *medicinesRepo) Create(ctx context.Context, m medicines.Medicine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.meds[m.ID]; exists {
		return medicines.ErrDuplicateID
	}
	r.s.meds[m.ID] = cloneMedicine(m)
	r.s.order = append(r.s.order, m.ID)
	r.s.bump(m.UpdatedAt)
	return nil
}

func (r *medicinesRepo) Update(ctx context.Context, m medicines.Medicine) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.meds[m.ID]; !exists {
		return medicines.ErrNotFound
	}
	r.s.meds[m.ID] = cloneMedicine(m)
	r.s.bump(m.UpdatedAt)
	return nil
}

func (r *medicinesRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.meds[id]; !exists {
		return medicines.ErrNotFound
	}
	delete(r.s.meds, id)
	for i, mid := range r.s.order {
		if mid == id {
			r.s.order = append(r.s.order[:i], r.s.order[i+1:]...)
			break
		}
	}
	// El ledger de tracking queda intacto.
	r.s.bump(time.Now())
	return nil
}

func (r *medicinesRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.meds[id]
	if !ok {
		return medicines.Medicine{}, medicines.ErrNotFound
	}
	return cloneMedicine(m), nil
}

func (r *medicinesRepo) List(ctx context.Context, activeOnly bool) ([]medicines.Medicine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medicines.Medicine, 0, len(r.s.order))
	for _, id := range r.s.order {
		m := r.s.meds[id]
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, cloneMedicine(m))
	}
	return out, nil
}

func (r *medicinesRepo) ListLowStock(ctx context.Context) ([]medicines.Medicine, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]medicines.Medicine, 0)
	for _, id := range r.s.order {
		m := r.s.meds[id]
		if m.Active && m.LowStock() {
			out = append(out, cloneMedicine(m))
		}
	}
	// Más crítico primero, como el store sql.
	sort.Slice(out, func(i, j int) bool {
		return out[i].PillsRemaining < out[j].PillsRemaining
	})
	return out, nil
}

// cloneMedicine copia el slice de días para que el caller no pueda mutar
// el estado del store por referencia.
func cloneMedicine(m medicines.Medicine) medicines.Medicine {
	out := m
	out.Days = append([]medicines.Weekday(nil), m.Days...)
	return out
}
