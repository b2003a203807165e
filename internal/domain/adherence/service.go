// Package adherence agrega estadísticas de solo lectura sobre el ledger.
// Nunca escribe; sin datos en el rango devuelve ceros, no error.
package adherence

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/schedule"
	"medicine-tracker/internal/domain/tracking"
)

var ErrInvalidRange = errors.New("invalid date range")

type Service struct {
	meds   medicines.Repository
	ledger tracking.Repository
	now    func() time.Time
}

func NewService(meds medicines.Repository, ledger tracking.Repository) *Service {
	return &Service{
		meds:   meds,
		ledger: ledger,
		now:    time.Now,
	}
}

// TodayStats es el resumen de un día puntual, con el conteo de stock bajo
// que muestra el display junto a las estadísticas.
type TodayStats struct {
	Date           string
	TotalScheduled int
	Taken          int
	Skipped        int
	Pending        int
	AdherenceRate  float64 // proporción 0..1, redondeada a 2 decimales
	LowStockCount  int
}

// Today calcula las estadísticas del día: medicinas activas programadas
// para ese día de semana contra el ledger de esa fecha.
func (s *Service) Today(ctx context.Context, date string) (TodayStats, error) {
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	day, err := weekdayOf(date, s.now().Location())
	if err != nil {
		return TodayStats{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRange)
	}

	meds, err := s.meds.List(ctx, true)
	if err != nil {
		return TodayStats{}, err
	}

	records, err := s.ledger.List(ctx, tracking.Filter{From: date, To: date})
	if err != nil {
		return TodayStats{}, err
	}
	byKey := indexRecords(records)

	stats := TodayStats{Date: date}
	for _, m := range meds {
		if !m.ScheduledOn(day) {
			continue
		}
		stats.TotalScheduled++

		rec, ok := byKey[tracking.Key{MedicineID: m.ID, Date: date, TimeWindow: m.TimeWindow}]
		switch {
		case ok && rec.Taken:
			stats.Taken++
		case ok && rec.Skipped:
			stats.Skipped++
		}
	}
	stats.Pending = stats.TotalScheduled - stats.Taken - stats.Skipped

	if stats.TotalScheduled > 0 {
		stats.AdherenceRate = math.Round(float64(stats.Taken)/float64(stats.TotalScheduled)*100) / 100
	}

	lowStock, err := s.meds.ListLowStock(ctx)
	if err != nil {
		return TodayStats{}, err
	}
	stats.LowStockCount = len(lowStock)

	return stats, nil
}

// MedicineStats es el desglose por medicina dentro de un rango.
type MedicineStats struct {
	MedicineID    string
	Name          string
	Total         int
	Taken         int
	Skipped       int
	Missed        int
	AdherenceRate float64 // porcentaje 0..100, 1 decimal
}

// Stats es el agregado detallado de un rango de fechas.
type Stats struct {
	Total         int
	Taken         int
	Skipped       int
	Missed        int
	AdherenceRate float64 // porcentaje 0..100, 1 decimal
	SkipRate      float64
	ByMedicine    []MedicineStats
}

// Detailed recorre el schedule implícito de cada medicina activa dentro del
// rango y lo cruza con el ledger. missed solo cuenta ventanas ya vencidas
// (fin + buffer pasado respecto de ahora); una dosis de hoy cuya franja
// sigue abierta no es missed todavía.
func (s *Service) Detailed(ctx context.Context, from, to string) (Stats, error) {
	now := s.now()
	loc := now.Location()

	if to == "" {
		to = now.Format("2006-01-02")
	}
	if from == "" {
		end, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return Stats{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidRange)
		}
		from = end.AddDate(0, 0, -30).Format("2006-01-02")
	}

	start, err := time.ParseInLocation("2006-01-02", from, loc)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: start_date must be YYYY-MM-DD", ErrInvalidRange)
	}
	end, err := time.ParseInLocation("2006-01-02", to, loc)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: end_date must be YYYY-MM-DD", ErrInvalidRange)
	}
	if end.Before(start) {
		return Stats{}, fmt.Errorf("%w: end_date before start_date", ErrInvalidRange)
	}

	meds, err := s.meds.List(ctx, true)
	if err != nil {
		return Stats{}, err
	}

	records, err := s.ledger.List(ctx, tracking.Filter{From: from, To: to})
	if err != nil {
		return Stats{}, err
	}
	byKey := indexRecords(records)

	stats := Stats{ByMedicine: make([]MedicineStats, 0, len(meds))}

	for _, m := range meds {
		ms := MedicineStats{MedicineID: m.ID, Name: m.Name}

		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !m.ScheduledOn(medicines.WeekdayOf(d)) {
				continue
			}
			date := d.Format("2006-01-02")
			ms.Total++

			rec, ok := byKey[tracking.Key{MedicineID: m.ID, Date: date, TimeWindow: m.TimeWindow}]
			switch {
			case ok && rec.Taken:
				ms.Taken++
			case ok && rec.Skipped:
				ms.Skipped++
			case schedule.Elapsed(m, date, now, schedule.DefaultBufferMinutes):
				ms.Missed++
			}
		}

		ms.AdherenceRate = percent(ms.Taken, ms.Total)

		stats.Total += ms.Total
		stats.Taken += ms.Taken
		stats.Skipped += ms.Skipped
		stats.Missed += ms.Missed
		stats.ByMedicine = append(stats.ByMedicine, ms)
	}

	stats.AdherenceRate = percent(stats.Taken, stats.Total)
	stats.SkipRate = percent(stats.Skipped, stats.Total)

	return stats, nil
}

// percent = n/total*100 redondeado a 1 decimal; 0 si total es 0.
func percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

func weekdayOf(date string, loc *time.Location) (medicines.Weekday, error) {
	d, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return "", err
	}
	return medicines.WeekdayOf(d), nil
}

func indexRecords(records []tracking.Record) map[tracking.Key]tracking.Record {
	byKey := make(map[tracking.Key]tracking.Record, len(records))
	for _, r := range records {
		byKey[tracking.Key{MedicineID: r.MedicineID, Date: r.Date, TimeWindow: r.TimeWindow}] = r
	}
	return byKey
}
