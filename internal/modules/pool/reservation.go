package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReservationService creates and releases soft holds against available
// stock. Holds never mutate total stock.
type ReservationService interface {
	// Reserve admits a hold only if it fits within available stock.
	// Admission is serialized per product: two concurrent calls never
	// both succeed when together they exceed availability.
	Reserve(ctx context.Context, req ReserveRequest) (*StockReservation, error)

	// Release frees an active hold back into available stock.
	Release(ctx context.Context, reservationID string) error
}

// ReserveRequest holds data for placing a stock hold.
type ReserveRequest struct {
	ProductID         string            `json:"productId"`
	Quantity          int               `json:"quantity"`
	Reason            ReservationReason `json:"reason"`
	ExpirationMinutes int               `json:"expirationMinutes,omitempty"`
	UserID            uuid.UUID         `json:"-"`
}

type reservationService struct {
	repo StockRepository
}

// NewReservationService creates the reservation manager.
func NewReservationService(repo StockRepository) ReservationService {
	return &reservationService{repo: repo}
}

func (s *reservationService) Reserve(ctx context.Context, req ReserveRequest) (*StockReservation, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", req.ProductID, ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !req.Reason.Valid() {
		return nil, fmt.Errorf("unknown reservation reason %q: %w", req.Reason, ErrValidation)
	}

	expiration := DefaultExpiration
	if req.ExpirationMinutes > 0 {
		expiration = time.Duration(req.ExpirationMinutes) * time.Minute
	}

	now := time.Now().UTC()
	r := &StockReservation{
		ID:        uuid.New(),
		ProductID: productID,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		UserID:    req.UserID,
		Status:    ReservationActive,
		CreatedAt: now,
		ExpiresAt: now.Add(expiration),
	}
	if err := withRetry(ctx, func() error {
		return s.repo.ReserveIfAvailable(ctx, r, now)
	}); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *reservationService) Release(ctx context.Context, reservationID string) error {
	id, err := uuid.Parse(reservationID)
	if err != nil {
		return fmt.Errorf("invalid reservationId %q: %w", reservationID, ErrValidation)
	}
	return withRetry(ctx, func() error {
		return s.repo.ReleaseReservation(ctx, id)
	})
}
