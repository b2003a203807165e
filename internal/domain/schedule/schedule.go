// Package schedule decide qué dosis están pendientes.
// Es puro: no hace I/O, opera sobre medicinas ya cargadas en memoria.
package schedule

import (
	"time"

	"medicine-tracker/internal/domain/medicines"
)

// DefaultBufferMinutes es la ventana de recordatorio: minutos antes/después
// de la franja en los que la dosis sigue contando como pendiente.
const DefaultBufferMinutes = 30

const minutesPerDay = 24 * 60

// Due evalúa si una medicina está dentro de su ventana ahora mismo:
// activa, programada para el día de la semana de now (hora local del caller)
// y con now dentro de [start-buffer, end+buffer], inclusive.
// No mira el ledger; eso es asunto de Pending.
func Due(m medicines.Medicine, now time.Time, bufferMinutes int) bool {
	if !m.Active {
		return false
	}
	if !m.ScheduledOn(medicines.WeekdayOf(now)) {
		return false
	}

	start, end := m.EffectiveWindow()
	startMins := medicines.ClockMinutes(start) - bufferMinutes
	endMins := medicines.ClockMinutes(end) + bufferMinutes
	nowMins := now.Hour()*60 + now.Minute()

	return inWindow(nowMins, startMins, endMins)
}

// inWindow maneja el wrap sobre medianoche módulo 1440: si el buffer empuja
// la franja night más allá de 24:00, la ventana envuelve al día siguiente.
func inWindow(now, start, end int) bool {
	start = ((start % minutesPerDay) + minutesPerDay) % minutesPerDay
	end = ((end % minutesPerDay) + minutesPerDay) % minutesPerDay

	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

// Elapsed indica si la ventana de una medicina ya cerró del todo para una
// fecha dada (fin + buffer pasado respecto de now). Lo usa el agregador
// para la categoría "missed".
func Elapsed(m medicines.Medicine, date string, now time.Time, bufferMinutes int) bool {
	today := now.Format("2006-01-02")
	if date < today {
		return true
	}
	if date > today {
		return false
	}

	_, end := m.EffectiveWindow()
	endMins := medicines.ClockMinutes(end) + bufferMinutes
	if endMins >= minutesPerDay {
		// Con wrap la ventana termina mañana; hoy nunca está vencida.
		return false
	}
	nowMins := now.Hour()*60 + now.Minute()
	return nowMins > endMins
}

// Entry es una medicina pendiente con su estado de stock, listo para
// renderizar o serializar.
type Entry struct {
	Medicine medicines.Medicine
	LowStock bool
}

// ResolvedFn responde si ya existe un registro resuelto (taken o skipped)
// para (medicina, hoy, franja).
type ResolvedFn func(medicineID string, window medicines.TimeWindow) bool

// Pending aplica Due sobre todas las medicinas y descarta las ya resueltas
// hoy. El orden de entrada se preserva.
func Pending(meds []medicines.Medicine, resolved ResolvedFn, now time.Time, bufferMinutes int) []Entry {
	out := make([]Entry, 0)
	for _, m := range meds {
		if !Due(m, now, bufferMinutes) {
			continue
		}
		if resolved != nil && resolved(m.ID, m.TimeWindow) {
			continue
		}
		out = append(out, Entry{
			Medicine: m,
			LowStock: m.LowStock(),
		})
	}
	return out
}
