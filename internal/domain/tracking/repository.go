package tracking

import (
	"context"
	"time"
)

// Filter acota List. Fechas YYYY-MM-DD inclusivas; cadenas vacías = sin filtro.
type Filter struct {
	MedicineID  string
	From        string
	To          string
	SkippedOnly bool
}

// TakeResult es el estado de stock tras RecordTaken.
// Applied=false significa que la dosis ya estaba registrada como tomada y
// no se volvió a aplicar nada (idempotencia).
type TakeResult struct {
	Applied        bool
	PillsRemaining int
	LowStock       bool
	MedicineName   string
}

type Repository interface {
	Get(ctx context.Context, key Key) (Record, error)
	// List ordenada por fecha desc, timestamp desc.
	List(ctx context.Context, f Filter) ([]Record, error)

	// RecordTaken corre en una sola transacción: verifica la medicina
	// (ausente o inactiva => medicines.ErrNotFound), aplica el guard de
	// idempotencia sobre la key, upserta el ledger, decrementa el stock
	// con piso en 0 y bumpea la versión. Una key ya salteada devuelve
	// ErrSkippedConflict salvo overrideSkip.
	RecordTaken(ctx context.Context, key Key, takenAt time.Time, overrideSkip bool) (TakeResult, error)

	// RecordSkipped registra el salto sin tocar inventario y bumpea la
	// versión en la misma transacción. Re-skip actualiza motivo y
	// timestamp (no hay nada que duplicar). Una key ya tomada devuelve
	// ErrTakenConflict.
	RecordSkipped(ctx context.Context, key Key, reason, notes string, at time.Time) error
}
