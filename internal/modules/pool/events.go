package pool

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LowStockAlert is emitted when a movement leaves a product below its
// configured minimum stock.
type LowStockAlert struct {
	ProductID  uuid.UUID `json:"productId"`
	TotalStock int       `json:"totalStock"`
	MinStock   int       `json:"minStock"`
	MovementID uuid.UUID `json:"movementId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// AlertPublisher delivers low-stock alerts to the notification pipeline.
// Publishing is best-effort: a delivery failure never fails the movement
// that triggered it.
type AlertPublisher interface {
	PublishLowStock(ctx context.Context, alert LowStockAlert) error
}

// NoopPublisher discards alerts. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishLowStock(ctx context.Context, alert LowStockAlert) error { return nil }
