package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Product is an item in the master catalog. TotalStock is the single
// logical pool quantity shared by all modules; after creation it is only
// ever written by the inventory pool's ledger.
type Product struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	BasePrice   float64   `json:"base_price"`
	Currency    string    `json:"currency"`
	Unit        string    `json:"unit"`
	MinStock    int       `json:"min_stock"`
	TotalStock  int       `json:"total_stock"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
