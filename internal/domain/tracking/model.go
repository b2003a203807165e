package tracking

import (
	"time"

	"medicine-tracker/internal/domain/medicines"
)

// Record es una entrada del ledger: a lo sumo una por
// (medicina, fecha, franja). taken y skipped son mutuamente excluyentes;
// el recorder es el único que escribe acá y mantiene esa invariante.
type Record struct {
	MedicineID string
	Date       string // YYYY-MM-DD
	TimeWindow medicines.TimeWindow

	Taken      bool
	TakenAt    *time.Time
	PillsTaken int

	Skipped    bool
	SkippedAt  *time.Time
	SkipReason string
	SkipNotes  string

	// Denormalizados del join con medicines, para payloads de historial.
	// Vacíos si la medicina fue borrada (el ledger sobrevive al borrado).
	MedicineName string
	Dosage       string
}

// Resolved: la dosis ya fue tomada o salteada.
func (r Record) Resolved() bool {
	return r.Taken || r.Skipped
}

// Key identifica una ocurrencia de dosis programada.
type Key struct {
	MedicineID string
	Date       string // YYYY-MM-DD
	TimeWindow medicines.TimeWindow
}

// Motivos de skip aceptados.
const (
	ReasonForgot        = "forgot"
	ReasonSideEffects   = "side_effects"
	ReasonOutOfStock    = "out_of_stock"
	ReasonDoctorAdvised = "doctor_advised"
	ReasonOther         = "other"
)

func ValidSkipReason(reason string) bool {
	switch reason {
	case ReasonForgot, ReasonSideEffects, ReasonOutOfStock, ReasonDoctorAdvised, ReasonOther:
		return true
	}
	return false
}
