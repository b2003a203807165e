package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"medicine-tracker/internal/domain/medicines"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoRecord: no hay entrada de ledger para la key.
	ErrNoRecord = errors.New("tracking record not found")
	// ErrSkippedConflict: mark_taken sobre una dosis ya salteada sin override.
	ErrSkippedConflict = errors.New("dose already skipped")
	// ErrTakenConflict: skip sobre una dosis ya tomada.
	ErrTakenConflict = errors.New("dose already taken")
)

// Service es el recorder: el único componente que crea entradas de ledger
// o muta el stock de pastillas.
type Service struct {
	repo Repository
	meds medicines.Repository
	now  func() time.Time
}

func NewService(repo Repository, meds medicines.Repository) *Service {
	return &Service{
		repo: repo,
		meds: meds,
		now:  time.Now,
	}
}

type TakeInput struct {
	MedicineID string
	TimeWindow string // vacío = franja propia de la medicina
	Date       string // vacío = fecha del timestamp
	TakenAt    *time.Time
	// Override permite "des-saltear": pisa un skip existente con taken.
	Override bool
}

type TakeOutput struct {
	MedicineID     string
	MedicineName   string
	PillsRemaining int
	LowStock       bool
	TakenAt        time.Time
	// AlreadyTaken: la key ya estaba resuelta como taken; no se decrementó
	// nada de nuevo.
	AlreadyTaken bool
}

// MarkTaken registra una toma. Repetir la llamada para la misma key es un
// no-op que devuelve el mismo stock (nunca decrementa dos veces).
func (s *Service) MarkTaken(ctx context.Context, in TakeInput) (TakeOutput, error) {
	med, window, err := s.resolve(ctx, in.MedicineID, in.TimeWindow)
	if err != nil {
		return TakeOutput{}, err
	}

	takenAt := s.now()
	if in.TakenAt != nil {
		takenAt = *in.TakenAt
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = takenAt.Format("2006-01-02")
	}

	key := Key{MedicineID: med.ID, Date: date, TimeWindow: window}
	res, err := s.repo.RecordTaken(ctx, key, takenAt, in.Override)
	if err != nil {
		return TakeOutput{}, err
	}

	return TakeOutput{
		MedicineID:     med.ID,
		MedicineName:   res.MedicineName,
		PillsRemaining: res.PillsRemaining,
		LowStock:       res.LowStock,
		TakenAt:        takenAt,
		AlreadyTaken:   !res.Applied,
	}, nil
}

type SkipInput struct {
	MedicineID string
	TimeWindow string // vacío = franja propia de la medicina
	Date       string // vacío = hoy
	Reason     string
	Notes      string
}

type SkipOutput struct {
	MedicineID   string
	MedicineName string
	TimeWindow   medicines.TimeWindow
	Date         string
	SkippedAt    time.Time
	Reason       string
}

// MarkSkipped registra un salto. No toca inventario.
func (s *Service) MarkSkipped(ctx context.Context, in SkipInput) (SkipOutput, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return SkipOutput{}, fmt.Errorf("%w: reason is required", ErrInvalidInput)
	}
	if !ValidSkipReason(reason) {
		return SkipOutput{}, fmt.Errorf("%w: reason must be one of: forgot, side_effects, out_of_stock, doctor_advised, other", ErrInvalidInput)
	}
	if len(in.Notes) > 500 {
		return SkipOutput{}, fmt.Errorf("%w: notes too long", ErrInvalidInput)
	}

	med, window, err := s.resolve(ctx, in.MedicineID, in.TimeWindow)
	if err != nil {
		return SkipOutput{}, err
	}

	at := s.now()
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = at.Format("2006-01-02")
	}

	key := Key{MedicineID: med.ID, Date: date, TimeWindow: window}
	if err := s.repo.RecordSkipped(ctx, key, reason, strings.TrimSpace(in.Notes), at); err != nil {
		return SkipOutput{}, err
	}

	return SkipOutput{
		MedicineID:   med.ID,
		MedicineName: med.Name,
		TimeWindow:   window,
		Date:         date,
		SkippedAt:    at,
		Reason:       reason,
	}, nil
}

// BatchItem es el resultado individual de un batch-take.
type BatchItem struct {
	MedicineID     string
	MedicineName   string
	PillsRemaining int
	LowStock       bool
	Err            error
}

// BatchMarkTaken aplica MarkTaken por item. Un fallo individual no aborta
// el resto del batch.
func (s *Service) BatchMarkTaken(ctx context.Context, medicineIDs []string, takenAt *time.Time) []BatchItem {
	out := make([]BatchItem, 0, len(medicineIDs))
	for _, id := range medicineIDs {
		res, err := s.MarkTaken(ctx, TakeInput{MedicineID: id, TakenAt: takenAt})
		if err != nil {
			out = append(out, BatchItem{MedicineID: id, Err: err})
			continue
		}
		out = append(out, BatchItem{
			MedicineID:     res.MedicineID,
			MedicineName:   res.MedicineName,
			PillsRemaining: res.PillsRemaining,
			LowStock:       res.LowStock,
		})
	}
	return out
}

// History devuelve entradas de ledger filtradas.
func (s *Service) History(ctx context.Context, f Filter) ([]Record, error) {
	return s.repo.List(ctx, f)
}

// SkipHistory: solo dosis salteadas.
func (s *Service) SkipHistory(ctx context.Context, medicineID, from, to string) ([]Record, error) {
	return s.repo.List(ctx, Filter{
		MedicineID:  medicineID,
		From:        from,
		To:          to,
		SkippedOnly: true,
	})
}

// ResolvedOn arma el predicado de resueltos de una fecha, para el scheduler.
func (s *Service) ResolvedOn(ctx context.Context, date string) (func(medicineID string, w medicines.TimeWindow) bool, error) {
	records, err := s.repo.List(ctx, Filter{From: date, To: date})
	if err != nil {
		return nil, err
	}

	resolved := make(map[Key]struct{}, len(records))
	for _, r := range records {
		if !r.Resolved() {
			continue
		}
		resolved[Key{MedicineID: r.MedicineID, Date: r.Date, TimeWindow: r.TimeWindow}] = struct{}{}
	}

	return func(medicineID string, w medicines.TimeWindow) bool {
		_, ok := resolved[Key{MedicineID: medicineID, Date: date, TimeWindow: w}]
		return ok
	}, nil
}

// resolve carga la medicina y decide la franja efectiva del request.
// Medicinas inactivas cuentan como inexistentes para el recorder.
func (s *Service) resolve(ctx context.Context, medicineID, window string) (medicines.Medicine, medicines.TimeWindow, error) {
	if strings.TrimSpace(medicineID) == "" {
		return medicines.Medicine{}, "", fmt.Errorf("%w: medicine_id is required", ErrInvalidInput)
	}

	med, err := s.meds.GetByID(ctx, medicineID)
	if err != nil {
		return medicines.Medicine{}, "", err
	}
	if !med.Active {
		return medicines.Medicine{}, "", medicines.ErrNotFound
	}

	w := med.TimeWindow
	if trimmed := strings.ToLower(strings.TrimSpace(window)); trimmed != "" {
		w = medicines.TimeWindow(trimmed)
		if !w.Valid() {
			return medicines.Medicine{}, "", fmt.Errorf("%w: time_window must be one of: morning, afternoon, evening, night", ErrInvalidInput)
		}
	}
	return med, w, nil
}
