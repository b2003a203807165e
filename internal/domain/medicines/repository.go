package medicines

import "context"

type Repository interface {
	Create(ctx context.Context, m Medicine) error
	Update(ctx context.Context, m Medicine) error
	// Delete borra la definición; el ledger de tracking se conserva.
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Medicine, error)
	// List ordenada por inserción (created_at asc).
	List(ctx context.Context, activeOnly bool) ([]Medicine, error)
	ListLowStock(ctx context.Context) ([]Medicine, error)
}
