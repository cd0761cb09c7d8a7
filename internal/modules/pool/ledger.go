package pool

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LedgerService applies permanent quantity changes to a product's total
// stock and keeps the append-only movement trail.
type LedgerService interface {
	// RecordMovement applies a typed movement. The product update and the
	// ledger insert happen as one atomic unit.
	RecordMovement(ctx context.Context, req RecordMovementRequest) (*StockMovement, error)

	// UpdateStock applies a signed adjustment. Large adjustments are
	// routed to the approval workflow instead of being applied when
	// RequireApproval is set.
	UpdateStock(ctx context.Context, req UpdateStockRequest) (*StockMovement, *PendingApproval, error)

	// GetStockMovements pages through a product's movement history,
	// newest first, optionally windowed by [from, to].
	GetStockMovements(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*StockMovement, error)
}

// RecordMovementRequest holds data for recording a stock movement.
type RecordMovementRequest struct {
	ProductID string       `json:"productId"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"`
	Reason    string       `json:"reason"`
	Reference string       `json:"reference,omitempty"`
	UserID    uuid.UUID    `json:"-"`
}

// UpdateStockRequest holds data for a signed stock adjustment.
type UpdateStockRequest struct {
	ProductID       string    `json:"productId"`
	Delta           int       `json:"quantity"` // signed
	Reason          string    `json:"reason"`
	RequireApproval bool      `json:"requireApproval,omitempty"`
	UserID          uuid.UUID `json:"-"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type ledgerService struct {
	repo      StockRepository
	publisher AlertPublisher
	logger    *slog.Logger
}

// NewLedgerService creates the stock ledger.
func NewLedgerService(repo StockRepository, publisher AlertPublisher, logger *slog.Logger) LedgerService {
	return &ledgerService{repo: repo, publisher: publisher, logger: logger}
}

func (s *ledgerService) RecordMovement(ctx context.Context, req RecordMovementRequest) (*StockMovement, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", req.ProductID, ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("unknown movement type %q: %w", req.Type, ErrValidation)
	}
	if req.Type == MovementAdjustment {
		return nil, fmt.Errorf("adjustments must be applied through the adjust operation: %w", ErrValidation)
	}

	m := &StockMovement{
		ID:        uuid.New(),
		ProductID: productID,
		Type:      req.Type,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Reference: req.Reference,
		UserID:    req.UserID,
	}
	delta := direction[req.Type] * req.Quantity
	if err := withRetry(ctx, func() error {
		return s.repo.ApplyMovement(ctx, m, delta)
	}); err != nil {
		return nil, err
	}

	s.alertIfBelowMin(ctx, m)
	return m, nil
}

func (s *ledgerService) UpdateStock(ctx context.Context, req UpdateStockRequest) (*StockMovement, *PendingApproval, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid productId %q: %w", req.ProductID, ErrValidation)
	}
	if req.Delta == 0 {
		return nil, nil, ErrInvalidQuantity
	}

	magnitude := req.Delta
	if magnitude < 0 {
		magnitude = -magnitude
	}

	if req.RequireApproval && magnitude > ApprovalThreshold {
		approval := &PendingApproval{
			ID:        uuid.New(),
			ProductID: productID,
			Delta:     req.Delta,
			Reason:    req.Reason,
			UserID:    req.UserID,
			Status:    "PENDING",
			CreatedAt: time.Now().UTC(),
		}
		if err := withRetry(ctx, func() error {
			return s.repo.CreateApproval(ctx, approval)
		}); err != nil {
			return nil, nil, err
		}
		return nil, approval, nil
	}

	m := &StockMovement{
		ID:        uuid.New(),
		ProductID: productID,
		Type:      MovementAdjustment,
		Quantity:  magnitude,
		Reason:    req.Reason,
		UserID:    req.UserID,
	}
	if err := withRetry(ctx, func() error {
		return s.repo.ApplyMovement(ctx, m, req.Delta)
	}); err != nil {
		return nil, nil, err
	}

	s.alertIfBelowMin(ctx, m)
	return m, nil, nil
}

func (s *ledgerService) GetStockMovements(ctx context.Context, productID string, from, to *time.Time, limit, offset int) ([]*StockMovement, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", productID, ErrValidation)
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListMovements(ctx, pid, from, to, limit, offset)
}

// alertIfBelowMin publishes a low-stock alert after the movement has
// committed. Best effort: failures are logged, never returned.
func (s *ledgerService) alertIfBelowMin(ctx context.Context, m *StockMovement) {
	if m.SignedDelta() >= 0 {
		return
	}
	min, err := s.repo.GetMinStock(ctx, m.ProductID)
	if err != nil || m.AfterQty >= min {
		return
	}
	alert := LowStockAlert{
		ProductID:  m.ProductID,
		TotalStock: m.AfterQty,
		MinStock:   min,
		MovementID: m.ID,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishLowStock(ctx, alert); err != nil {
		s.logger.Warn("low stock alert publish failed",
			"product_id", m.ProductID, "error", err)
	}
}
