package medicines

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("medicine not found")
	ErrDuplicateID  = errors.New("medicine already exists")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// Input cubre create y update (PUT = reemplazo completo).
type Input struct {
	ID                string
	Name              string
	Dosage            string
	TimeWindow        string
	WindowStart       string
	WindowEnd         string
	Days              []string
	WithFood          bool
	Notes             string
	PillsRemaining    int
	PillsPerDose      int
	LowStockThreshold int
	Active            bool
}

func (s *Service) Create(ctx context.Context, in Input) (Medicine, error) {
	m, err := s.build(in)
	if err != nil {
		return Medicine{}, err
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}

	now := s.now()
	m.CreatedAt = now
	m.UpdatedAt = now

	if err := s.repo.Create(ctx, m); err != nil {
		return Medicine{}, err
	}
	return m, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Medicine, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Medicine{}, err
	}

	in.ID = id
	m, err := s.build(in)
	if err != nil {
		return Medicine{}, err
	}

	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, m); err != nil {
		return Medicine{}, err
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (Medicine, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Medicine, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *Service) ListLowStock(ctx context.Context) ([]Medicine, error) {
	return s.repo.ListLowStock(ctx)
}

// build valida el input y lo convierte al modelo.
// Toda validación ocurre acá, antes de tocar el repo.
func (s *Service) build(in Input) (Medicine, error) {
	if strings.TrimSpace(in.Name) == "" {
		return Medicine{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Dosage) == "" {
		return Medicine{}, fmt.Errorf("%w: dosage is required", ErrInvalidInput)
	}

	w := TimeWindow(strings.ToLower(strings.TrimSpace(in.TimeWindow)))
	if !w.Valid() {
		return Medicine{}, fmt.Errorf("%w: time_window must be one of: morning, afternoon, evening, night", ErrInvalidInput)
	}

	if len(in.Days) == 0 {
		return Medicine{}, fmt.Errorf("%w: days must not be empty", ErrInvalidInput)
	}
	days := make([]Weekday, 0, len(in.Days))
	seen := map[Weekday]struct{}{}
	for _, raw := range in.Days {
		d := Weekday(strings.ToLower(strings.TrimSpace(raw)))
		if !d.Valid() {
			return Medicine{}, fmt.Errorf("%w: invalid day %q", ErrInvalidInput, raw)
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		days = append(days, d)
	}
	SortDays(days)

	start := strings.TrimSpace(in.WindowStart)
	end := strings.TrimSpace(in.WindowEnd)
	if start != "" || end != "" {
		startMins, err := parseClock(start)
		if err != nil {
			return Medicine{}, fmt.Errorf("%w: window_start must be HH:MM", ErrInvalidInput)
		}
		endMins, err := parseClock(end)
		if err != nil {
			return Medicine{}, fmt.Errorf("%w: window_end must be HH:MM", ErrInvalidInput)
		}
		// start == end no define una ventana; se rechaza al escribir.
		if endMins <= startMins {
			return Medicine{}, fmt.Errorf("%w: window_end must be after window_start", ErrInvalidInput)
		}
	}

	if in.PillsRemaining < 0 {
		return Medicine{}, fmt.Errorf("%w: pills_remaining must be >= 0", ErrInvalidInput)
	}
	if in.PillsPerDose < 1 {
		return Medicine{}, fmt.Errorf("%w: pills_per_dose must be >= 1", ErrInvalidInput)
	}
	if in.LowStockThreshold < 1 {
		return Medicine{}, fmt.Errorf("%w: low_stock_threshold must be >= 1", ErrInvalidInput)
	}

	return Medicine{
		ID:                strings.TrimSpace(in.ID),
		Name:              strings.TrimSpace(in.Name),
		Dosage:            strings.TrimSpace(in.Dosage),
		TimeWindow:        w,
		WindowStart:       start,
		WindowEnd:         end,
		Days:              days,
		WithFood:          in.WithFood,
		Notes:             strings.TrimSpace(in.Notes),
		PillsRemaining:    in.PillsRemaining,
		PillsPerDose:      in.PillsPerDose,
		LowStockThreshold: in.LowStockThreshold,
		Active:            in.Active,
	}, nil
}

// parseClock convierte "HH:MM" a minutos desde medianoche.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockMinutes es parseClock para valores ya validados (defaults incluidos).
// Devuelve 0 si el valor no parsea; no debería ocurrir tras la validación de escritura.
func ClockMinutes(s string) int {
	mins, err := parseClock(s)
	if err != nil {
		return 0
	}
	return mins
}
