package medicines

import "time"

// Medicine representa una medicación programada del hogar.
type Medicine struct {
	ID     string
	Name   string
	Dosage string

	TimeWindow TimeWindow
	// Overrides opcionales en HH:MM; vacíos = defaults de la franja.
	WindowStart string
	WindowEnd   string

	Days []Weekday

	WithFood bool
	Notes    string

	PillsRemaining    int
	PillsPerDose      int
	LowStockThreshold int

	// Inactiva = fuera de scheduling y pending, pero conservada para historial.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveWindow devuelve los límites reales de la franja
// (override explícito o default).
func (m Medicine) EffectiveWindow() (start, end string) {
	start, end = m.TimeWindow.DefaultBounds()
	if m.WindowStart != "" {
		start = m.WindowStart
	}
	if m.WindowEnd != "" {
		end = m.WindowEnd
	}
	return start, end
}

// LowStock: pills_remaining <= low_stock_threshold.
func (m Medicine) LowStock() bool {
	return m.PillsRemaining <= m.LowStockThreshold
}

// ScheduledOn indica si la medicina está programada para ese día.
func (m Medicine) ScheduledOn(day Weekday) bool {
	for _, d := range m.Days {
		if d == day {
			return true
		}
	}
	return false
}

// DaysRemaining estima cuántas dosis quedan en stock (redondeado a 1 decimal).
func (m Medicine) DaysRemaining() float64 {
	if m.PillsPerDose <= 0 {
		return 0
	}
	ratio := float64(m.PillsRemaining) / float64(m.PillsPerDose)
	return float64(int(ratio*10+0.5)) / 10
}
