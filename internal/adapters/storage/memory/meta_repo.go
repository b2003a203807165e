package memory

import (
	"context"

	"medicine-tracker/internal/domain/meta"
)

type metaRepo struct {
	s *Store
}

func NewMetaRepo(s *Store) meta.Repository {
	return &metaRepo{s: s}
}

func (r *metaRepo) Version(ctx context.Context) (meta.Version, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return meta.Version{
		Counter:     r.s.version,
		LastUpdated: r.s.lastUpdated,
	}, nil
}
