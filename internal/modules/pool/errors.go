package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound means the product id is unknown to the catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrReservationNotFound means the reservation id never existed or is
	// no longer active.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrValidation marks caller-input failures (bad ids, unknown enum
	// values). Handlers map it to 400; anything else unrecognised is a
	// server fault.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidQuantity means a quantity was zero or negative.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")

	// ErrConflict is a transient write conflict. Callers inside the pool
	// retry it with backoff; it only surfaces when retries are exhausted.
	ErrConflict = errors.New("concurrent update conflict")
)

// InsufficientStockError rejects an operation that would overdraw the pool.
// Available carries the quantity the caller could still get, so it can
// retry with a smaller request.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}
