package medicines

import (
	"context"
	"errors"
	"testing"
	"time"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID  map[string]Medicine
	order []string
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Medicine{}}
}

func (r *testRepo) Create(ctx context.Context, m Medicine) error {
	if _, ok := r.byID[m.ID]; ok {
		return ErrDuplicateID
	}
	r.byID[m.ID] = m
	r.order = append(r.order, m.ID)
	return nil
}

func (r *testRepo) Update(ctx context.Context, m Medicine) error {
	if _, ok := r.byID[m.ID]; !ok {
		return ErrNotFound
	}
	r.byID[m.ID] = m
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Medicine, error) {
	m, ok := r.byID[id]
	if !ok {
		return Medicine{}, ErrNotFound
	}
	return m, nil
}

func (r *testRepo) List(ctx context.Context, activeOnly bool) ([]Medicine, error) {
	out := make([]Medicine, 0, len(r.order))
	for _, id := range r.order {
		m, ok := r.byID[id]
		if !ok {
			continue
		}
		if activeOnly && !m.Active {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *testRepo) ListLowStock(ctx context.Context) ([]Medicine, error) {
	out := make([]Medicine, 0)
	for _, id := range r.order {
		m, ok := r.byID[id]
		if ok && m.Active && m.LowStock() {
			out = append(out, m)
		}
	}
	return out, nil
}

func validInput() Input {
	return Input{
		Name:              "Lisinopril",
		Dosage:            "10mg",
		TimeWindow:        "morning",
		Days:              []string{"mon", "wed", "fri"},
		PillsRemaining:    30,
		PillsPerDose:      1,
		LowStockThreshold: 5,
		Active:            true,
	}
}

// -------------------------
// Tests
// -------------------------

func TestService_Create_GeneratesIDAndTimestamps(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	m, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if m.ID == "" {
		t.Fatalf("expected generated id")
	}
	if m.CreatedAt != now || m.UpdatedAt != now {
		t.Fatalf("expected CreatedAt/UpdatedAt to be now")
	}
}

func TestService_Create_CanonicalizesDays(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	in := validInput()
	in.Days = []string{"FRI", "mon", "fri", " wed "}

	m, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	want := []Weekday{"mon", "wed", "fri"}
	if len(m.Days) != len(want) {
		t.Fatalf("expected days %v, got %v", want, m.Days)
	}
	for i := range want {
		if m.Days[i] != want[i] {
			t.Fatalf("expected days %v, got %v", want, m.Days)
		}
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*Input)
	}{
		{"missing name", func(in *Input) { in.Name = "  " }},
		{"missing dosage", func(in *Input) { in.Dosage = "" }},
		{"bad window", func(in *Input) { in.TimeWindow = "midnight" }},
		{"empty days", func(in *Input) { in.Days = nil }},
		{"bad day", func(in *Input) { in.Days = []string{"mon", "lunes"} }},
		{"negative pills", func(in *Input) { in.PillsRemaining = -1 }},
		{"zero per dose", func(in *Input) { in.PillsPerDose = 0 }},
		{"zero threshold", func(in *Input) { in.LowStockThreshold = 0 }},
		{"bad window start", func(in *Input) { in.WindowStart = "6am"; in.WindowEnd = "12:00" }},
		{"end before start", func(in *Input) { in.WindowStart = "12:00"; in.WindowEnd = "06:00" }},
		{"empty window", func(in *Input) { in.WindowStart = "08:00"; in.WindowEnd = "08:00" }},
	}

	for _, tc := range cases {
		in := validInput()
		tc.mutate(&in)
		if _, err := svc.Create(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestService_Update_FullReplace_KeepsCreatedAt(t *testing.T) {
	repo := newTestRepo()
	svc := NewService(repo)

	created := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	svc.now = func() time.Time { return created }
	m, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	svc.now = func() time.Time { return updated }
	in := validInput()
	in.Name = "Lisinopril HCT"
	in.Notes = "con desayuno"

	got, err := svc.Update(context.Background(), m.ID, in)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if got.Name != "Lisinopril HCT" || got.Notes != "con desayuno" {
		t.Fatalf("expected replaced fields, got %+v", got)
	}
	if got.CreatedAt != created {
		t.Fatalf("expected CreatedAt preserved, got %v", got.CreatedAt)
	}
	if got.UpdatedAt != updated {
		t.Fatalf("expected UpdatedAt advanced, got %v", got.UpdatedAt)
	}
}

func TestService_Update_UnknownID(t *testing.T) {
	svc := NewService(newTestRepo())

	if _, err := svc.Update(context.Background(), "nope", validInput()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Create_DuplicateID(t *testing.T) {
	svc := NewService(newTestRepo())
	ctx := context.Background()

	in := validInput()
	in.ID = "med-1"
	if _, err := svc.Create(ctx, in); err != nil {
		t.Fatalf("first Create returned error: %v", err)
	}
	if _, err := svc.Create(ctx, in); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
}

func TestMedicine_EffectiveWindowAndStock(t *testing.T) {
	m := Medicine{
		TimeWindow:        WindowMorning,
		PillsRemaining:    4,
		PillsPerDose:      2,
		LowStockThreshold: 5,
	}

	start, end := m.EffectiveWindow()
	if start != "06:00" || end != "12:00" {
		t.Fatalf("expected default morning bounds, got %s-%s", start, end)
	}

	m.WindowStart = "07:30"
	m.WindowEnd = "09:00"
	start, end = m.EffectiveWindow()
	if start != "07:30" || end != "09:00" {
		t.Fatalf("expected override bounds, got %s-%s", start, end)
	}

	if !m.LowStock() {
		t.Fatalf("expected low stock at 4 <= 5")
	}
	if m.DaysRemaining() != 2.0 {
		t.Fatalf("expected 2 days remaining, got %v", m.DaysRemaining())
	}
}
