package adherence

import (
	"context"
	"errors"
	"testing"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/tracking"
)

// -------------------------
// Test repos (in-memory)
// -------------------------

type testMedsRepo struct {
	meds []medicines.Medicine
}

func (r *testMedsRepo) Create(ctx context.Context, m medicines.Medicine) error { return nil }
func (r *testMedsRepo) Update(ctx context.Context, m medicines.Medicine) error { return nil }
func (r *testMedsRepo) Delete(ctx context.Context, id string) error            { return nil }

func (r *testMedsRepo) GetByID(ctx context.Context, id string) (medicines.Medicine, error) {
	for _, m := range r.meds {
		if m.ID == id {
			return m, nil
		}
	}
	return medicines.Medicine{}, medicines.ErrNotFound
}

func (r *testMedsRepo) List(ctx context.Context, activeOnly bool) ([]medicines.Medicine, error) {
	out := make([]medicines.Medicine, 0, len(r.meds))
	for _, m := range r.meds {
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *testMedsRepo) ListLowStock(ctx context.Context) ([]medicines.Medicine, error) {
	out := make([]medicines.Medicine, 0)
	for _, m := range r.meds {
		if m.Active && m.LowStock() {
			out = append(out, m)
		}
	}
	return out, nil
}

type testLedger struct {
	records []tracking.Record
}

func (r *testLedger) RecordTaken(ctx context.Context, key tracking.Key, takenAt time.Time, overrideSkip bool) (tracking.TakeResult, error) {
	return tracking.TakeResult{}, errors.New("read-only ledger")
}

func (r *testLedger) RecordSkipped(ctx context.Context, key tracking.Key, reason, notes string, at time.Time) error {
	return errors.New("read-only ledger")
}

func (r *testLedger) Get(ctx context.Context, key tracking.Key) (tracking.Record, error) {
	return tracking.Record{}, tracking.ErrNoRecord
}

func (r *testLedger) List(ctx context.Context, f tracking.Filter) ([]tracking.Record, error) {
	out := make([]tracking.Record, 0)
	for _, rec := range r.records {
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
		out = append(out, rec)
	}
	return out, nil
}

func dailyMedicine(id string, window medicines.TimeWindow) medicines.Medicine {
	return medicines.Medicine{
		ID:                id,
		Name:              "Med " + id,
		Dosage:            "10mg",
		TimeWindow:        window,
		Days:              []medicines.Weekday{"mon", "tue", "wed", "thu", "fri", "sat", "sun"},
		PillsRemaining:    30,
		PillsPerDose:      1,
		LowStockThreshold: 3,
		Active:            true,
	}
}

func taken(id, date string, window medicines.TimeWindow) tracking.Record {
	return tracking.Record{MedicineID: id, Date: date, TimeWindow: window, Taken: true}
}

func skipped(id, date string, window medicines.TimeWindow) tracking.Record {
	return tracking.Record{MedicineID: id, Date: date, TimeWindow: window, Skipped: true}
}

func newTestService(meds []medicines.Medicine, records []tracking.Record, now time.Time) *Service {
	svc := NewService(&testMedsRepo{meds: meds}, &testLedger{records: records})
	svc.now = func() time.Time { return now }
	return svc
}

// -------------------------
// Tests
// -------------------------

func TestService_Today(t *testing.T) {
	low := dailyMedicine("med-2", medicines.WindowEvening)
	low.PillsRemaining = 2

	meds := []medicines.Medicine{
		dailyMedicine("med-1", medicines.WindowMorning),
		low,
		dailyMedicine("med-3", medicines.WindowNight),
	}
	records := []tracking.Record{
		taken("med-1", "2026-03-02", medicines.WindowMorning),
		skipped("med-2", "2026-03-02", medicines.WindowEvening),
	}

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService(meds, records, now)

	stats, err := svc.Today(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}

	if stats.TotalScheduled != 3 || stats.Taken != 1 || stats.Skipped != 1 || stats.Pending != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	// 1/3 redondeado a 2 decimales.
	if stats.AdherenceRate != 0.33 {
		t.Fatalf("expected adherence 0.33, got %v", stats.AdherenceRate)
	}
	if stats.LowStockCount != 1 {
		t.Fatalf("expected 1 low stock, got %d", stats.LowStockCount)
	}
}

func TestService_Today_RespectsWeekdaySchedule(t *testing.T) {
	weekdayOnly := dailyMedicine("med-1", medicines.WindowMorning)
	weekdayOnly.Days = []medicines.Weekday{"tue"}

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) // lunes
	svc := newTestService([]medicines.Medicine{weekdayOnly}, nil, now)

	stats, err := svc.Today(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("Today returned error: %v", err)
	}
	if stats.TotalScheduled != 0 {
		t.Fatalf("expected nothing scheduled on monday, got %d", stats.TotalScheduled)
	}
	if stats.AdherenceRate != 0 {
		t.Fatalf("expected zero rate with empty schedule, got %v", stats.AdherenceRate)
	}
}

func TestService_Detailed_RatesRoundToOneDecimal(t *testing.T) {
	// 15 días programados: 10 taken, 2 skipped, 3 missed.
	med := dailyMedicine("med-1", medicines.WindowMorning)

	records := make([]tracking.Record, 0, 12)
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		records = append(records, taken("med-1", day.AddDate(0, 0, i).Format("2006-01-02"), medicines.WindowMorning))
	}
	for i := 10; i < 12; i++ {
		records = append(records, skipped("med-1", day.AddDate(0, 0, i).Format("2006-01-02"), medicines.WindowMorning))
	}

	// now muy posterior al rango: todo lo no resuelto ya venció.
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := newTestService([]medicines.Medicine{med}, records, now)

	stats, err := svc.Detailed(context.Background(), "2026-03-02", "2026-03-16")
	if err != nil {
		t.Fatalf("Detailed returned error: %v", err)
	}

	if stats.Total != 15 || stats.Taken != 10 || stats.Skipped != 2 || stats.Missed != 3 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AdherenceRate != 66.7 {
		t.Fatalf("expected adherence 66.7, got %v", stats.AdherenceRate)
	}
	if stats.SkipRate != 13.3 {
		t.Fatalf("expected skip rate 13.3, got %v", stats.SkipRate)
	}

	if len(stats.ByMedicine) != 1 {
		t.Fatalf("expected 1 medicine breakdown, got %d", len(stats.ByMedicine))
	}
	if stats.ByMedicine[0].AdherenceRate != 66.7 {
		t.Fatalf("expected per-medicine adherence 66.7, got %v", stats.ByMedicine[0].AdherenceRate)
	}
}

func TestService_Detailed_OpenWindowIsNotMissed(t *testing.T) {
	med := dailyMedicine("med-1", medicines.WindowEvening) // cierra 21:00

	// Hoy a las 10:00: la franja evening todavía no abrió, no puede ser missed.
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc := newTestService([]medicines.Medicine{med}, nil, now)

	stats, err := svc.Detailed(context.Background(), "2026-03-02", "2026-03-02")
	if err != nil {
		t.Fatalf("Detailed returned error: %v", err)
	}
	if stats.Total != 1 || stats.Missed != 0 {
		t.Fatalf("expected 1 scheduled and 0 missed, got %+v", stats)
	}
}

func TestService_Detailed_EmptyRangeIsZeros(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil, nil, now)

	stats, err := svc.Detailed(context.Background(), "2026-03-02", "2026-03-16")
	if err != nil {
		t.Fatalf("Detailed returned error: %v", err)
	}
	if stats.Total != 0 || stats.AdherenceRate != 0 || stats.SkipRate != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestService_Detailed_InvalidRange(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil, nil, now)

	if _, err := svc.Detailed(context.Background(), "2026-03-16", "2026-03-02"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for reversed range, got %v", err)
	}
	if _, err := svc.Detailed(context.Background(), "03/02/2026", ""); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for malformed date, got %v", err)
	}
}
