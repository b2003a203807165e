// Package memory implementa los puertos de storage en mapas, para tests
// y para correr la API sin base. Un solo mutex cubre todo el estado:
// marcar una toma toca ledger, stock y versión a la vez.
package memory

import (
	"sync"
	"time"

	"medicine-tracker/internal/domain/medicines"
	"medicine-tracker/internal/domain/tracking"
)

type Store struct {
	mu          sync.RWMutex
	meds        map[string]medicines.Medicine
	order       []string
	records     map[tracking.Key]tracking.Record
	version     int64
	lastUpdated time.Time
}

func NewStore() *Store {
	return &Store{
		meds:    make(map[string]medicines.Medicine),
		order:   make([]string, 0),
		records: make(map[tracking.Key]tracking.Record),
	}
}

// bump se llama con el write lock tomado.
func (s *Store) bump(now time.Time) {
	s.version++
	s.lastUpdated = now
}
