package pool

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a permanent change to a product's total stock.
type MovementType string

const (
	MovementPurchase   MovementType = "PURCHASE"
	MovementSale       MovementType = "SALE"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementTransfer   MovementType = "TRANSFER"
	MovementReturn     MovementType = "RETURN"
	MovementDamage     MovementType = "DAMAGE"
	MovementTheft      MovementType = "THEFT"
	MovementSpillage   MovementType = "SPILLAGE"
	MovementBreakage   MovementType = "BREAKAGE"
)

// direction returns +1 for movement types that add stock and -1 for types
// that remove it. ADJUSTMENT is not listed: its sign comes from the caller.
var direction = map[MovementType]int{
	MovementPurchase: +1,
	MovementReturn:   +1,
	MovementSale:     -1,
	MovementTransfer: -1,
	MovementDamage:   -1,
	MovementTheft:    -1,
	MovementSpillage: -1,
	MovementBreakage: -1,
}

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	if t == MovementAdjustment {
		return true
	}
	_, ok := direction[t]
	return ok
}

// StockMovement is an immutable, append-only audit record of one change to
// a product's total stock. Movements are never updated or deleted.
type StockMovement struct {
	ID        uuid.UUID    `json:"id"`
	ProductID uuid.UUID    `json:"productId"`
	Type      MovementType `json:"type"`
	Quantity  int          `json:"quantity"` // magnitude, always positive
	Reason    string       `json:"reason"`
	Reference string       `json:"reference,omitempty"` // external order/document id
	UserID    uuid.UUID    `json:"userId"`
	BeforeQty int          `json:"beforeQty"`
	AfterQty  int          `json:"afterQty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// SignedDelta is the change this movement applied to total stock. Derived
// from the immutable before/after pair so it holds for ADJUSTMENT rows too.
func (m *StockMovement) SignedDelta() int { return m.AfterQty - m.BeforeQty }

// ReservationReason classifies why stock was put on hold.
type ReservationReason string

const (
	ReasonSalesOrder          ReservationReason = "SALES_ORDER"
	ReasonPurchaseOrder       ReservationReason = "PURCHASE_ORDER"
	ReasonQuotePreparation    ReservationReason = "QUOTE_PREPARATION"
	ReasonCustomerHold        ReservationReason = "CUSTOMER_HOLD"
	ReasonQualityCheck        ReservationReason = "QUALITY_CHECK"
	ReasonTransferPreparation ReservationReason = "TRANSFER_PREPARATION"
	ReasonMaintenance         ReservationReason = "MAINTENANCE"
	ReasonOther               ReservationReason = "OTHER"
)

var validReasons = map[ReservationReason]bool{
	ReasonSalesOrder:          true,
	ReasonPurchaseOrder:       true,
	ReasonQuotePreparation:    true,
	ReasonCustomerHold:        true,
	ReasonQualityCheck:        true,
	ReasonTransferPreparation: true,
	ReasonMaintenance:         true,
	ReasonOther:               true,
}

// Valid reports whether r is a known reservation reason.
func (r ReservationReason) Valid() bool { return validReasons[r] }

// ReservationStatus is the explicit lifecycle state of a reservation.
type ReservationStatus string

const (
	ReservationActive   ReservationStatus = "ACTIVE"
	ReservationReleased ReservationStatus = "RELEASED"
	ReservationExpired  ReservationStatus = "EXPIRED"
)

// StockReservation is a time-bounded soft hold against available stock.
// It never changes total stock. Only ACTIVE rows whose expires_at is in the
// future count toward reserved stock; expired rows are excluded at query
// time even before the sweeper marks them EXPIRED.
type StockReservation struct {
	ID        uuid.UUID         `json:"id"`
	ProductID uuid.UUID         `json:"productId"`
	Quantity  int               `json:"quantity"`
	Reason    ReservationReason `json:"reason"`
	UserID    uuid.UUID         `json:"userId"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// PendingApproval is returned instead of an applied movement when an
// adjustment exceeds the approval threshold. The approval workflow itself
// lives outside the pool.
type PendingApproval struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Delta     int       `json:"delta"` // signed
	Reason    string    `json:"reason"`
	UserID    uuid.UUID `json:"userId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// StockSummary is the derived availability picture for one product.
// Always recomputed from current state, never cached.
type StockSummary struct {
	ProductID      uuid.UUID `json:"productId"`
	TotalStock     int       `json:"totalStock"`
	ReservedStock  int       `json:"reservedStock"`
	AvailableStock int       `json:"availableStock"`
}

// ValidationResult answers a dry-run stock check.
type ValidationResult struct {
	Valid          bool   `json:"valid"`
	AvailableStock int    `json:"availableStock"`
	Message        string `json:"message"`
}

// DefaultExpiration is applied when a reserve request carries no
// expiration_minutes.
const DefaultExpiration = 30 * time.Minute

// ApprovalThreshold is the adjustment magnitude above which updateStock
// routes to the approval workflow instead of applying the change.
const ApprovalThreshold = 100
