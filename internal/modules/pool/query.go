package pool

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StockOperation names the dry-run checks supported by ValidateStockOperation.
type StockOperation string

const (
	OperationReserve StockOperation = "reserve"
	OperationReduce  StockOperation = "reduce"
)

// QueryService answers derived-availability and pre-flight validation
// questions. It never mutates state.
type QueryService interface {
	GetStockSummary(ctx context.Context, productID string) (*StockSummary, error)
	ValidateStockOperation(ctx context.Context, productID string, quantity int, op StockOperation) (*ValidationResult, error)
}

type queryService struct {
	repo StockRepository

	// reduceAgainstAvailable, when set, makes "reduce" validate against
	// available stock so active holds block direct reductions. Default is
	// to validate against total stock only.
	reduceAgainstAvailable bool
}

// NewQueryService creates the stock query service.
func NewQueryService(repo StockRepository, reduceAgainstAvailable bool) QueryService {
	return &queryService{repo: repo, reduceAgainstAvailable: reduceAgainstAvailable}
}

func (s *queryService) GetStockSummary(ctx context.Context, productID string) (*StockSummary, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", productID, ErrValidation)
	}
	return s.repo.GetSummary(ctx, pid, time.Now().UTC())
}

func (s *queryService) ValidateStockOperation(ctx context.Context, productID string, quantity int, op StockOperation) (*ValidationResult, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("invalid productId %q: %w", productID, ErrValidation)
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	summary, err := s.repo.GetSummary(ctx, pid, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	var limit int
	switch op {
	case OperationReserve:
		limit = summary.AvailableStock
	case OperationReduce:
		if s.reduceAgainstAvailable {
			limit = summary.AvailableStock
		} else {
			limit = summary.TotalStock
		}
	default:
		return nil, fmt.Errorf("unknown operation %q: %w", op, ErrValidation)
	}

	result := &ValidationResult{AvailableStock: summary.AvailableStock}
	if quantity <= limit {
		result.Valid = true
		result.Message = fmt.Sprintf("%d units can be %sd", quantity, op)
	} else {
		result.Message = fmt.Sprintf("cannot %s %d units: %d available", op, quantity, limit)
	}
	return result, nil
}
