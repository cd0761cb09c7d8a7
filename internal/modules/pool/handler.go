package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tchisanga/opsuite-backend/internal/modules/auth"
)

// Handler exposes the inventory pool HTTP endpoints.
type Handler struct {
	ledger       LedgerService
	reservations ReservationService
	queries      QueryService
	cleanup      CleanupService
	cleanupGate  func(http.Handler) http.Handler
}

// NewHandler creates the pool handler. cleanupGate guards the cleanup
// endpoint; pass auth.RequireRole with the privileged roles.
func NewHandler(ledger LedgerService, reservations ReservationService, queries QueryService, cleanup CleanupService, cleanupGate func(http.Handler) http.Handler) *Handler {
	return &Handler{
		ledger:       ledger,
		reservations: reservations,
		queries:      queries,
		cleanup:      cleanup,
		cleanupGate:  cleanupGate,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/pool", func(r chi.Router) {
		r.Get("/", h.getSummary)                 // GET    /api/v1/pool?productId=
		r.Post("/reserve", h.reserve)            // POST   /api/v1/pool/reserve
		r.Delete("/reserve", h.release)          // DELETE /api/v1/pool/reserve?reservationId=
		r.Post("/movements", h.postMovement)     // POST   /api/v1/pool/movements
		r.Get("/movements", h.listMovements)     // GET    /api/v1/pool/movements?productId=&from=&to=
		r.Post("/validate", h.validate)          // POST   /api/v1/pool/validate
		r.With(h.cleanupGate).Post("/cleanup", h.runCleanup)
	})
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	if productID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "productId is required"})
		return
	}
	summary, err := h.queries.GetStockSummary(r.Context(), productID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req ReserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}
	req.UserID = principal.UserID

	reservation, err := h.reservations.Reserve(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"reservationId": reservation.ID.String()})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	reservationID := r.URL.Query().Get("reservationId")
	if reservationID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "reservationId is required"})
		return
	}
	if err := h.reservations.Release(r.Context(), reservationID); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]bool{"ok": true})
}

// movementRequest is the polymorphic body of POST /pool/movements.
type movementRequest struct {
	Action          string       `json:"action"` // record | adjust
	ProductID       string       `json:"productId"`
	Type            MovementType `json:"type,omitempty"`
	Quantity        int          `json:"quantity"`
	Reason          string       `json:"reason"`
	Reference       string       `json:"reference,omitempty"`
	RequireApproval bool         `json:"requireApproval,omitempty"`
}

func (h *Handler) postMovement(w http.ResponseWriter, r *http.Request) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respond(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	switch req.Action {
	case "record":
		m, err := h.ledger.RecordMovement(r.Context(), RecordMovementRequest{
			ProductID: req.ProductID,
			Type:      req.Type,
			Quantity:  req.Quantity,
			Reason:    req.Reason,
			Reference: req.Reference,
			UserID:    principal.UserID,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		respond(w, http.StatusOK, map[string]interface{}{"movement": m})
	case "adjust":
		m, approval, err := h.ledger.UpdateStock(r.Context(), UpdateStockRequest{
			ProductID:       req.ProductID,
			Delta:           req.Quantity,
			Reason:          req.Reason,
			RequireApproval: req.RequireApproval,
			UserID:          principal.UserID,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		if approval != nil {
			respond(w, http.StatusOK, map[string]interface{}{"approval": approval})
			return
		}
		respond(w, http.StatusOK, map[string]interface{}{"movement": m})
	default:
		respond(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("unknown action %q, expected record or adjust", req.Action),
		})
	}
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID := q.Get("productId")
	if productID == "" {
		respond(w, http.StatusBadRequest, map[string]string{"error": "productId is required"})
		return
	}
	from, err := parseTimeParam(q.Get("from"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid from timestamp"})
		return
	}
	to, err := parseTimeParam(q.Get("to"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid to timestamp"})
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	movements, err := h.ledger.GetStockMovements(r.Context(), productID, from, to, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	if movements == nil {
		movements = []*StockMovement{}
	}
	respond(w, http.StatusOK, map[string]interface{}{"movements": movements})
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string         `json:"productId"`
		Quantity  int            `json:"quantity"`
		Operation StockOperation `json:"operation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result, err := h.queries.ValidateStockOperation(r.Context(), req.ProductID, req.Quantity, req.Operation)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) runCleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.cleanup.CleanupExpired(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{
		"cleanedReservations": n,
		"message":             fmt.Sprintf("%d expired reservations cleaned", n),
	})
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t, err = time.Parse("2006-01-02", v)
		if err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// respondError maps pool errors onto the HTTP surface.
func respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		respond(w, http.StatusBadRequest, map[string]interface{}{
			"error":          insufficient.Error(),
			"availableStock": insufficient.Available,
		})
	case errors.Is(err, ErrInvalidQuantity):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrReservationNotFound):
		respond(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrConflict):
		respond(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrValidation):
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		// Fatal persistence failure: no internal detail leaks.
		respond(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
