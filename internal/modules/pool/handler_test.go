package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tchisanga/opsuite-backend/internal/modules/auth"
	"github.com/tchisanga/opsuite-backend/pkg/logging"
)

// newTestRouter mounts the pool handler behind a stub principal with the
// given role. An empty role mounts it with no principal at all.
func newTestRouter(store *MemoryStore, role string) http.Handler {
	ledger := NewLedgerService(store, &capturedAlerts{}, logging.New())
	handler := NewHandler(
		ledger,
		NewReservationService(store),
		NewQueryService(store, false),
		NewCleanupService(store),
		auth.RequireRole("ADMIN", "MANAGER"),
	)

	router := chi.NewRouter()
	if role != "" {
		principal := auth.Principal{UserID: uuid.New(), Role: role}
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
			})
		})
	}
	handler.RegisterRoutes(router)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_GetSummary(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	router := newTestRouter(store, "STAFF")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/pool?productId="+productID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary StockSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.TotalStock != 100 || summary.AvailableStock != 100 {
		t.Errorf("unexpected summary %+v", summary)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/pool", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing productId, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/pool?productId="+uuid.New().String(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown product, got %d", rec.Code)
	}
}

func TestHandler_ReserveAndRelease(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	router := newTestRouter(store, "STAFF")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pool/reserve", map[string]interface{}{
		"productId": productID.String(), "quantity": 25, "reason": "SALES_ORDER",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, err := uuid.Parse(resp["reservationId"]); err != nil {
		t.Fatalf("expected reservation id, got %q", resp["reservationId"])
	}

	// Oversized reserve carries the available quantity back.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/pool/reserve", map[string]interface{}{
		"productId": productID.String(), "quantity": 80, "reason": "SALES_ORDER",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var failure struct {
		Error          string `json:"error"`
		AvailableStock int    `json:"availableStock"`
	}
	json.Unmarshal(rec.Body.Bytes(), &failure)
	if failure.AvailableStock != 75 {
		t.Errorf("expected availableStock 75 in error payload, got %d", failure.AvailableStock)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/pool/reserve?reservationId="+resp["reservationId"], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on release, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/v1/pool/reserve", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing reservationId, got %d", rec.Code)
	}
}

func TestHandler_ReserveUnauthenticated(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	router := newTestRouter(store, "")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pool/reserve", map[string]interface{}{
		"productId": productID.String(), "quantity": 5, "reason": "SALES_ORDER",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without principal, got %d", rec.Code)
	}
}

func TestHandler_Movements(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	router := newTestRouter(store, "STAFF")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pool/movements", map[string]interface{}{
		"action": "record", "productId": productID.String(),
		"type": "PURCHASE", "quantity": 50, "reason": "restock", "reference": "PO-9",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var recorded struct {
		Movement StockMovement `json:"movement"`
	}
	json.Unmarshal(rec.Body.Bytes(), &recorded)
	if recorded.Movement.BeforeQty != 100 || recorded.Movement.AfterQty != 150 {
		t.Errorf("unexpected movement %+v", recorded.Movement)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/pool/movements", map[string]interface{}{
		"action": "adjust", "productId": productID.String(), "quantity": -10, "reason": "BREAKAGE",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	json.Unmarshal(rec.Body.Bytes(), &recorded)
	if recorded.Movement.Type != MovementAdjustment || recorded.Movement.AfterQty != 140 {
		t.Errorf("unexpected adjustment %+v", recorded.Movement)
	}

	// Large adjustment with approval flag branches to the workflow.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/pool/movements", map[string]interface{}{
		"action": "adjust", "productId": productID.String(), "quantity": -120,
		"reason": "stocktake", "requireApproval": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var approved struct {
		Approval *PendingApproval `json:"approval"`
	}
	json.Unmarshal(rec.Body.Bytes(), &approved)
	if approved.Approval == nil || approved.Approval.Delta != -120 {
		t.Fatalf("expected approval payload, got %s", rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/pool/movements", map[string]interface{}{
		"action": "incinerate", "productId": productID.String(), "quantity": 1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown action, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet,
		fmt.Sprintf("/api/v1/pool/movements?productId=%s&limit=10", productID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listed struct {
		Movements []*StockMovement `json:"movements"`
	}
	json.Unmarshal(rec.Body.Bytes(), &listed)
	if len(listed.Movements) != 2 {
		t.Errorf("expected 2 movements, got %d", len(listed.Movements))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/pool/movements", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing productId, got %d", rec.Code)
	}
}

func TestHandler_Validate(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	router := newTestRouter(store, "STAFF")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/pool/validate", map[string]interface{}{
		"productId": productID.String(), "quantity": 150, "operation": "reduce",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result ValidationResult
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Valid {
		t.Error("expected invalid result for reducing 150 of 100")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/pool/validate", map[string]interface{}{
		"productId": productID.String(), "quantity": 0, "operation": "reserve",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero quantity, got %d", rec.Code)
	}
}

// faultyRepo fails reads with a fixed error.
type faultyRepo struct {
	StockRepository
	err error
}

func (f *faultyRepo) GetSummary(ctx context.Context, productID uuid.UUID, now time.Time) (*StockSummary, error) {
	return nil, f.err
}

func TestHandler_RepoFailureStaysInternal(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)
	driverErr := errors.New("pq: invalid page header in block 42 of relation products")
	repo := &faultyRepo{
		StockRepository: store,
		err:             fmt.Errorf("query summary: %w", driverErr),
	}

	handler := NewHandler(
		NewLedgerService(repo, &capturedAlerts{}, logging.New()),
		NewReservationService(repo),
		NewQueryService(repo, false),
		NewCleanupService(repo),
		auth.RequireRole("ADMIN", "MANAGER"),
	)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/pool?productId="+productID.String(), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for a persistence failure, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["error"] != "internal server error" {
		t.Errorf("expected generic error body, got %q", resp["error"])
	}
	if strings.Contains(rec.Body.String(), "page header") {
		t.Errorf("driver detail leaked into response: %s", rec.Body.String())
	}
}

func TestHandler_CleanupRoleGate(t *testing.T) {
	store, productID := newTestStore(t, 100, 0)

	staff := newTestRouter(store, "STAFF")
	rec := doJSON(t, staff, http.MethodPost, "/api/v1/pool/cleanup", nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for STAFF, got %d", rec.Code)
	}

	anonymous := newTestRouter(store, "")
	rec = doJSON(t, anonymous, http.MethodPost, "/api/v1/pool/cleanup", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without principal, got %d", rec.Code)
	}

	admin := newTestRouter(store, "ADMIN")
	reservations := NewReservationService(store)
	r, err := reservations.Reserve(context.Background(), ReserveRequest{
		ProductID: productID.String(), Quantity: 10, Reason: ReasonSalesOrder, UserID: uuid.New(),
	})
	if err != nil {
		t.Fatal(err)
	}
	expireReservation(store, r.ID, time.Minute)

	rec = doJSON(t, admin, http.MethodPost, "/api/v1/pool/cleanup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ADMIN, got %d: %s", rec.Code, rec.Body.String())
	}
	var cleaned struct {
		CleanedReservations int    `json:"cleanedReservations"`
		Message             string `json:"message"`
	}
	json.Unmarshal(rec.Body.Bytes(), &cleaned)
	if cleaned.CleanedReservations < 1 {
		t.Errorf("expected at least 1 cleaned, got %d", cleaned.CleanedReservations)
	}
}
