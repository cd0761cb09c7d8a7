package catalog

import "context"

// Repository defines the interface for product data storage. Update only
// touches descriptive fields; stock changes flow through the pool ledger.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, category string, activeOnly bool) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
}
