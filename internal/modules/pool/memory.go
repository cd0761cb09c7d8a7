package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryProduct struct {
	total int
	min   int
}

// MemoryStore is an in-memory StockRepository. A single mutex serializes
// every operation, which is sufficient for a single-instance deployment
// and for tests.
type MemoryStore struct {
	mu           sync.Mutex
	products     map[uuid.UUID]*memoryProduct
	movements    map[uuid.UUID][]*StockMovement
	reservations map[uuid.UUID]*StockReservation
	approvals    map[uuid.UUID]*PendingApproval
}

// NewMemoryStore creates an empty in-memory stock repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[uuid.UUID]*memoryProduct),
		movements:    make(map[uuid.UUID][]*StockMovement),
		reservations: make(map[uuid.UUID]*StockReservation),
		approvals:    make(map[uuid.UUID]*PendingApproval),
	}
}

// SeedProduct registers a product with its starting stock and threshold.
func (s *MemoryStore) SeedProduct(id uuid.UUID, totalStock, minStock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[id] = &memoryProduct{total: totalStock, min: minStock}
}

func (s *MemoryStore) GetTotalStock(ctx context.Context, productID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return p.total, nil
}

func (s *MemoryStore) GetMinStock(ctx context.Context, productID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return p.min, nil
}

func (s *MemoryStore) ApplyMovement(ctx context.Context, m *StockMovement, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[m.ProductID]
	if !ok {
		return ErrProductNotFound
	}
	if p.total+delta < 0 {
		return &InsufficientStockError{Available: p.total, Requested: m.Quantity}
	}
	m.BeforeQty = p.total
	p.total += delta
	m.AfterQty = p.total
	m.CreatedAt = time.Now().UTC()

	cp := *m
	s.movements[m.ProductID] = append(s.movements[m.ProductID], &cp)
	return nil
}

// activeReserved sums active, non-expired reservations. Callers hold s.mu.
func (s *MemoryStore) activeReserved(productID uuid.UUID, now time.Time) int {
	var sum int
	for _, r := range s.reservations {
		if r.ProductID == productID && r.Status == ReservationActive && r.ExpiresAt.After(now) {
			sum += r.Quantity
		}
	}
	return sum
}

func (s *MemoryStore) ReserveIfAvailable(ctx context.Context, r *StockReservation, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[r.ProductID]
	if !ok {
		return ErrProductNotFound
	}
	available := p.total - s.activeReserved(r.ProductID, now)
	if available < 0 {
		available = 0
	}
	if r.Quantity > available {
		return &InsufficientStockError{Available: available, Requested: r.Quantity}
	}
	cp := *r
	s.reservations[r.ID] = &cp
	return nil
}

func (s *MemoryStore) ReleaseReservation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok || r.Status != ReservationActive {
		return ErrReservationNotFound
	}
	r.Status = ReservationReleased
	return nil
}

func (s *MemoryStore) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	for _, r := range s.reservations {
		if r.Status == ReservationActive && !r.ExpiresAt.After(now) {
			r.Status = ReservationExpired
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) GetSummary(ctx context.Context, productID uuid.UUID, now time.Time) (*StockSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	reserved := s.activeReserved(productID, now)
	available := p.total - reserved
	if available < 0 {
		available = 0
	}
	return &StockSummary{
		ProductID:      productID,
		TotalStock:     p.total,
		ReservedStock:  reserved,
		AvailableStock: available,
	}, nil
}

func (s *MemoryStore) ListMovements(ctx context.Context, productID uuid.UUID, from, to *time.Time, limit, offset int) ([]*StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var filtered []*StockMovement
	for _, m := range s.movements[productID] {
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		cp := *m
		filtered = append(filtered, &cp)
	}
	sort.Slice(filtered, func(i, j int) bool {
		if !filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].ID.String() < filtered[j].ID.String()
	})
	if offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[offset:]
	if limit > 0 && limit < len(filtered) {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (s *MemoryStore) CreateApproval(ctx context.Context, a *PendingApproval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.approvals[a.ID] = &cp
	return nil
}
