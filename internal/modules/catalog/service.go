package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service defines catalog business logic.
type Service interface {
	CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	ListProducts(ctx context.Context, category string, activeOnly bool) ([]*Product, error)
	UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error)
}

// CreateProductRequest holds the data for creating a product. InitialStock
// seeds the pool quantity; every later change goes through the ledger.
type CreateProductRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	BasePrice    float64 `json:"base_price"`
	Currency     string  `json:"currency"`
	SKU          string  `json:"sku"`
	Unit         string  `json:"unit"`
	MinStock     int     `json:"min_stock"`
	InitialStock int     `json:"initial_stock"`
}

// UpdateProductRequest covers the descriptive fields. Stock is absent on
// purpose.
type UpdateProductRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	BasePrice   float64 `json:"base_price"`
	Currency    string  `json:"currency"`
	SKU         string  `json:"sku"`
	Unit        string  `json:"unit"`
	MinStock    *int    `json:"min_stock"`
	IsActive    *bool   `json:"is_active"`
}

type service struct{ repo Repository }

// NewService creates a new catalog service.
func NewService(repo Repository) Service { return &service{repo: repo} }

func (s *service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if req.InitialStock < 0 || req.MinStock < 0 {
		return nil, fmt.Errorf("stock quantities cannot be negative")
	}
	currency := req.Currency
	if currency == "" {
		currency = "ZMW"
	}
	unit := req.Unit
	if unit == "" {
		unit = "unit"
	}
	p := &Product{
		ID:          uuid.New(),
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		BasePrice:   req.BasePrice,
		Currency:    currency,
		Unit:        unit,
		MinStock:    req.MinStock,
		TotalStock:  req.InitialStock,
		IsActive:    true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) ListProducts(ctx context.Context, category string, activeOnly bool) ([]*Product, error) {
	return s.repo.List(ctx, category, activeOnly)
}

func (s *service) UpdateProduct(ctx context.Context, id string, req UpdateProductRequest) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.Category != "" {
		p.Category = req.Category
	}
	if req.BasePrice > 0 {
		p.BasePrice = req.BasePrice
	}
	if req.Currency != "" {
		p.Currency = req.Currency
	}
	if req.SKU != "" {
		p.SKU = req.SKU
	}
	if req.Unit != "" {
		p.Unit = req.Unit
	}
	if req.MinStock != nil && *req.MinStock >= 0 {
		p.MinStock = *req.MinStock
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
