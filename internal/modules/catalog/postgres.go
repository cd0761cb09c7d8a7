package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

func NewPostgresRepository(db *sql.DB) Repository { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, p *Product) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products
		  (id, sku, name, description, category, base_price, currency, unit, min_stock, total_stock, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.BasePrice,
		p.Currency, p.Unit, p.MinStock, p.TotalStock, p.IsActive)
	return err
}

func scanProduct(scan func(...interface{}) error) (*Product, error) {
	p := &Product{}
	err := scan(&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category, &p.BasePrice,
		&p.Currency, &p.Unit, &p.MinStock, &p.TotalStock, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

const productColumns = `id,sku,name,description,category,base_price,currency,unit,min_stock,total_stock,is_active,created_at,updated_at`

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=$1`, uid)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s not found", id)
	}
	return p, err
}

func (r *postgresRepo) List(ctx context.Context, category string, activeOnly bool) ([]*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	args := []interface{}{}
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category=$%d`, len(args))
	}
	if activeOnly {
		query += ` AND is_active=true`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Update writes descriptive fields only. total_stock is deliberately not
// in the statement: the pool ledger owns it.
func (r *postgresRepo) Update(ctx context.Context, p *Product) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products
		SET sku=$1, name=$2, description=$3, category=$4, base_price=$5,
		    currency=$6, unit=$7, min_stock=$8, is_active=$9, updated_at=NOW()
		WHERE id=$10`,
		p.SKU, p.Name, p.Description, p.Category, p.BasePrice,
		p.Currency, p.Unit, p.MinStock, p.IsActive, p.ID)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("product %s not found", p.ID)
	}
	return nil
}
