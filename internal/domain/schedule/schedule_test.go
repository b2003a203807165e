package schedule

import (
	"testing"
	"time"

	"medicine-tracker/internal/domain/medicines"
)

func testMedicine(window medicines.TimeWindow) medicines.Medicine {
	return medicines.Medicine{
		ID:         "med-1",
		Name:       "Lisinopril",
		Dosage:     "10mg",
		TimeWindow: window,
		Days: []medicines.Weekday{
			"mon", "tue", "wed", "thu", "fri", "sat", "sun",
		},
		PillsRemaining:    10,
		PillsPerDose:      1,
		LowStockThreshold: 3,
		Active:            true,
	}
}

// 2026-03-02 es lunes.
func at(hour, min int) time.Time {
	return time.Date(2026, 3, 2, hour, min, 0, 0, time.UTC)
}

func TestDue_BufferEdges(t *testing.T) {
	m := testMedicine(medicines.WindowMorning) // 06:00–12:00

	// 05:30 es exactamente start-buffer: inclusive.
	if !Due(m, at(5, 30), DefaultBufferMinutes) {
		t.Fatalf("expected due at 05:30 (start - buffer)")
	}
	if !Due(m, at(5, 35), DefaultBufferMinutes) {
		t.Fatalf("expected due at 05:35")
	}
	if Due(m, at(5, 25), DefaultBufferMinutes) {
		t.Fatalf("expected not due at 05:25")
	}
	if !Due(m, at(12, 30), DefaultBufferMinutes) {
		t.Fatalf("expected due at 12:30 (end + buffer)")
	}
	if Due(m, at(12, 31), DefaultBufferMinutes) {
		t.Fatalf("expected not due at 12:31")
	}
}

func TestDue_NightWrapsPastMidnight(t *testing.T) {
	m := testMedicine(medicines.WindowNight) // 21:00–23:59

	// 23:59 + 30 = 00:29 del día siguiente.
	if !Due(m, at(23, 50), DefaultBufferMinutes) {
		t.Fatalf("expected due at 23:50")
	}
	if !Due(m, at(0, 15), DefaultBufferMinutes) {
		t.Fatalf("expected due at 00:15 (wrapped buffer)")
	}
	if Due(m, at(0, 45), DefaultBufferMinutes) {
		t.Fatalf("expected not due at 00:45")
	}
}

func TestDue_RespectsDaysAndActive(t *testing.T) {
	m := testMedicine(medicines.WindowMorning)
	m.Days = []medicines.Weekday{"tue"}

	// Lunes 09:00: en ventana pero no programada hoy.
	if Due(m, at(9, 0), DefaultBufferMinutes) {
		t.Fatalf("expected not due on unscheduled weekday")
	}

	m.Days = []medicines.Weekday{"mon"}
	if !Due(m, at(9, 0), DefaultBufferMinutes) {
		t.Fatalf("expected due on scheduled weekday")
	}

	m.Active = false
	if Due(m, at(9, 0), DefaultBufferMinutes) {
		t.Fatalf("expected inactive medicine never due")
	}
}

func TestDue_CustomWindowOverridesDefault(t *testing.T) {
	m := testMedicine(medicines.WindowMorning)
	m.WindowStart = "10:00"
	m.WindowEnd = "11:00"

	if Due(m, at(8, 0), DefaultBufferMinutes) {
		t.Fatalf("expected not due at 08:00 with custom 10:00-11:00 window")
	}
	if !Due(m, at(10, 30), DefaultBufferMinutes) {
		t.Fatalf("expected due at 10:30 inside custom window")
	}
}

func TestElapsed(t *testing.T) {
	m := testMedicine(medicines.WindowMorning) // cierra 12:00, vencida desde 12:31

	now := at(13, 0)
	if !Elapsed(m, "2026-03-01", now, DefaultBufferMinutes) {
		t.Fatalf("expected past date always elapsed")
	}
	if Elapsed(m, "2026-03-03", now, DefaultBufferMinutes) {
		t.Fatalf("expected future date never elapsed")
	}
	if !Elapsed(m, "2026-03-02", now, DefaultBufferMinutes) {
		t.Fatalf("expected today elapsed at 13:00")
	}
	if Elapsed(m, "2026-03-02", at(12, 30), DefaultBufferMinutes) {
		t.Fatalf("expected today not elapsed at 12:30 (end + buffer)")
	}

	// La franja night con buffer envuelve a mañana: hoy nunca vence.
	n := testMedicine(medicines.WindowNight)
	if Elapsed(n, "2026-03-02", at(23, 59), DefaultBufferMinutes) {
		t.Fatalf("expected wrapped night window never elapsed same day")
	}
}

func TestPending_SkipsResolvedAndPreservesOrder(t *testing.T) {
	a := testMedicine(medicines.WindowMorning)
	a.ID = "med-a"
	b := testMedicine(medicines.WindowMorning)
	b.ID = "med-b"
	b.PillsRemaining = 2 // bajo el umbral
	c := testMedicine(medicines.WindowEvening)
	c.ID = "med-c"

	resolved := func(id string, _ medicines.TimeWindow) bool {
		return id == "med-a"
	}

	got := Pending([]medicines.Medicine{a, b, c}, resolved, at(9, 0), DefaultBufferMinutes)
	if len(got) != 1 {
		t.Fatalf("expected 1 pending entry, got %d", len(got))
	}
	if got[0].Medicine.ID != "med-b" || !got[0].LowStock {
		t.Fatalf("expected med-b flagged low stock, got %+v", got[0])
	}
}
