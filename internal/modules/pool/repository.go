package pool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StockRepository is the storage port for the pool. Implementations must
// make ApplyMovement and ReserveIfAvailable atomic per product: two
// concurrent calls may never both succeed when together they overdraw the
// product. The postgres implementation uses conditional updates and a row
// lock; the in-memory implementation uses a per-product mutex.
type StockRepository interface {
	// GetTotalStock returns the product's current total stock.
	GetTotalStock(ctx context.Context, productID uuid.UUID) (int, error)

	// GetMinStock returns the product's low-stock threshold.
	GetMinStock(ctx context.Context, productID uuid.UUID) (int, error)

	// ApplyMovement adjusts total stock by delta and appends the movement
	// as one atomic unit, filling in m.BeforeQty, m.AfterQty and
	// m.CreatedAt. Fails with ErrProductNotFound or, when delta would
	// drive total stock below zero, *InsufficientStockError.
	ApplyMovement(ctx context.Context, m *StockMovement, delta int) error

	// ReserveIfAvailable admits r only if r.Quantity fits within total
	// stock minus the sum of active, non-expired reservations, serialized
	// per product. Fails with *InsufficientStockError otherwise.
	ReserveIfAvailable(ctx context.Context, r *StockReservation, now time.Time) error

	// ReleaseReservation marks an ACTIVE reservation RELEASED. Fails with
	// ErrReservationNotFound when no active row matches.
	ReleaseReservation(ctx context.Context, id uuid.UUID) error

	// ExpireReservations marks every ACTIVE reservation whose expiry is at
	// or before now as EXPIRED, in one batch, and returns how many.
	ExpireReservations(ctx context.Context, now time.Time) (int, error)

	// GetSummary computes the availability picture from current state.
	// Reservations past their expiry are excluded even if not yet swept.
	GetSummary(ctx context.Context, productID uuid.UUID, now time.Time) (*StockSummary, error)

	// ListMovements returns movements for a product, newest first, with an
	// optional [from, to] window on created_at and limit/offset paging.
	ListMovements(ctx context.Context, productID uuid.UUID, from, to *time.Time, limit, offset int) ([]*StockMovement, error)

	// CreateApproval stores a pending adjustment for the external approval
	// workflow.
	CreateApproval(ctx context.Context, a *PendingApproval) error
}
