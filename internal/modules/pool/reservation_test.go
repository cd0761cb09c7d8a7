package pool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T, totalStock, minStock int) (*MemoryStore, uuid.UUID) {
	t.Helper()
	store := NewMemoryStore()
	productID := uuid.New()
	store.SeedProduct(productID, totalStock, minStock)
	return store, productID
}

func TestReserve_Success(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)
	queries := NewQueryService(store, false)

	r, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(),
		Quantity:  25,
		Reason:    ReasonSalesOrder,
		UserID:    uuid.New(),
	})
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if r.Status != ReservationActive {
		t.Errorf("expected ACTIVE status, got %s", r.Status)
	}

	summary, err := queries.GetStockSummary(context.Background(), productID.String())
	if err != nil {
		t.Fatal(err)
	}
	if summary.TotalStock != 100 || summary.ReservedStock != 25 || summary.AvailableStock != 75 {
		t.Errorf("expected 100/25/75, got %d/%d/%d",
			summary.TotalStock, summary.ReservedStock, summary.AvailableStock)
	}
}

func TestReserve_InsufficientStock(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	if _, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 25, Reason: ReasonSalesOrder, UserID: uuid.New(),
	}); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 80, Reason: ReasonSalesOrder, UserID: uuid.New(),
	})
	var insufficient *InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.Available != 75 {
		t.Errorf("expected 75 available in error, got %d", insufficient.Available)
	}
	if !strings.Contains(err.Error(), "75") {
		t.Errorf("expected message to reference 75, got %q", err.Error())
	}
}

func TestReserve_ConcurrentNeverOversell(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	const workers = 30
	var succeeded int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Reserve(context.Background(), ReserveRequest{
				ProductID: productID.String(), Quantity: 10, Reason: ReasonQuotePreparation, UserID: uuid.New(),
			})
			if err == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Errorf("expected exactly 10 admissions of 10 units against 100, got %d", succeeded)
	}
	summary, err := NewQueryService(store, false).GetStockSummary(context.Background(), productID.String())
	if err != nil {
		t.Fatal(err)
	}
	if summary.ReservedStock > summary.TotalStock {
		t.Errorf("oversold: reserved %d exceeds total %d", summary.ReservedStock, summary.TotalStock)
	}
}

func TestRelease_RestoresCapacity(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)
	queries := NewQueryService(store, false)

	r, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 40, Reason: ReasonCustomerHold, UserID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}

	before, _ := queries.GetStockSummary(context.Background(), productID.String())
	if err := svc.Release(context.Background(), r.ID.String()); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	after, _ := queries.GetStockSummary(context.Background(), productID.String())

	if after.AvailableStock != before.AvailableStock+40 {
		t.Errorf("expected available %d after release, got %d",
			before.AvailableStock+40, after.AvailableStock)
	}
}

func TestRelease_UnknownID(t *testing.T) {
	store, _ := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	err := svc.Release(context.Background(), uuid.New().String())
	if !errors.Is(err, ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestRelease_Twice(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	r, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 5, Reason: ReasonOther, UserID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Release(context.Background(), r.ID.String()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Release(context.Background(), r.ID.String()); !errors.Is(err, ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound on second release, got %v", err)
	}
}

func TestReserve_InvalidInput(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	if _, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 0, Reason: ReasonSalesOrder, UserID: uuid.New(),
	}); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}

	if _, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 1, Reason: "NOT_A_REASON", UserID: uuid.New(),
	}); err == nil || !strings.Contains(err.Error(), "unknown reservation reason") {
		t.Errorf("expected reason validation error, got %v", err)
	}

	if _, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: uuid.New().String(), Quantity: 1, Reason: ReasonSalesOrder, UserID: uuid.New(),
	}); !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestReserve_DefaultExpiration(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	svc := NewReservationService(store)

	r, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 1, Reason: ReasonSalesOrder, UserID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := r.ExpiresAt.Sub(r.CreatedAt)
	if got != DefaultExpiration {
		t.Errorf("expected default expiration %v, got %v", DefaultExpiration, got)
	}

	r2, err := svc.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 1, Reason: ReasonSalesOrder,
		ExpirationMinutes: 5, UserID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if r2.ExpiresAt.Sub(r2.CreatedAt) != 5*time.Minute {
		t.Errorf("expected 5m expiration, got %v", r2.ExpiresAt.Sub(r2.CreatedAt))
	}
}
