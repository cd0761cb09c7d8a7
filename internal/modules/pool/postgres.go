package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates the postgres-backed stock repository.
func NewPostgresRepository(db *sql.DB) StockRepository { return &postgresRepo{db: db} }

func (r *postgresRepo) GetTotalStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		`SELECT total_stock FROM products WHERE id=$1`, productID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query total stock: %w", err)
	}
	return total, nil
}

func (r *postgresRepo) GetMinStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var min int
	err := r.db.QueryRowContext(ctx,
		`SELECT min_stock FROM products WHERE id=$1`, productID).Scan(&min)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("query min stock: %w", err)
	}
	return min, nil
}

// ApplyMovement updates the product counter and appends the ledger row in a
// single transaction. The conditional UPDATE refuses to take total stock
// below zero, so the check and the write happen in one round trip.
func (r *postgresRepo) ApplyMovement(ctx context.Context, m *StockMovement, delta int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var after int
	err = tx.QueryRowContext(ctx, `
		UPDATE products
		SET total_stock = total_stock + $1, updated_at = NOW()
		WHERE id = $2 AND total_stock + $1 >= 0
		RETURNING total_stock`,
		delta, m.ProductID).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		available, lookupErr := r.GetTotalStock(ctx, m.ProductID)
		if lookupErr != nil {
			return lookupErr
		}
		return &InsufficientStockError{Available: available, Requested: m.Quantity}
	}
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}

	m.BeforeQty = after - delta
	m.AfterQty = after
	m.CreatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_movements
		  (id, product_id, type, quantity, reason, reference, user_id, before_qty, after_qty, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		m.ID, m.ProductID, m.Type, m.Quantity, m.Reason, m.Reference,
		m.UserID, m.BeforeQty, m.AfterQty, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}

	return tx.Commit()
}

// ReserveIfAvailable locks the product row, recomputes availability from
// active reservations, and inserts the hold only if it fits. The row lock
// serializes concurrent admissions per product.
func (r *postgresRepo) ReserveIfAvailable(ctx context.Context, res *StockReservation, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var total int
	err = tx.QueryRowContext(ctx,
		`SELECT total_stock FROM products WHERE id=$1 FOR UPDATE`, res.ProductID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return fmt.Errorf("lock product: %w", err)
	}

	var reserved int
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity), 0)
		FROM stock_reservations
		WHERE product_id = $1 AND status = $2 AND expires_at > $3`,
		res.ProductID, ReservationActive, now).Scan(&reserved)
	if err != nil {
		return fmt.Errorf("sum reservations: %w", err)
	}

	available := total - reserved
	if available < 0 {
		available = 0
	}
	if res.Quantity > available {
		return &InsufficientStockError{Available: available, Requested: res.Quantity}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_reservations
		  (id, product_id, quantity, reason, user_id, status, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		res.ID, res.ProductID, res.Quantity, res.Reason, res.UserID,
		res.Status, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}

	return tx.Commit()
}

func (r *postgresRepo) ReleaseReservation(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_reservations SET status = $1
		WHERE id = $2 AND status = $3`,
		ReservationReleased, id, ReservationActive)
	if err != nil {
		return fmt.Errorf("release reservation: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func (r *postgresRepo) ExpireReservations(ctx context.Context, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stock_reservations SET status = $1
		WHERE status = $2 AND expires_at <= $3`,
		ReservationExpired, ReservationActive, now)
	if err != nil {
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *postgresRepo) GetSummary(ctx context.Context, productID uuid.UUID, now time.Time) (*StockSummary, error) {
	s := &StockSummary{ProductID: productID}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.total_stock, COALESCE(SUM(r.quantity), 0)
		FROM products p
		LEFT JOIN stock_reservations r
		  ON r.product_id = p.id AND r.status = $2 AND r.expires_at > $3
		WHERE p.id = $1
		GROUP BY p.total_stock`,
		productID, ReservationActive, now).Scan(&s.TotalStock, &s.ReservedStock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	s.AvailableStock = s.TotalStock - s.ReservedStock
	if s.AvailableStock < 0 {
		s.AvailableStock = 0
	}
	return s, nil
}

func (r *postgresRepo) ListMovements(ctx context.Context, productID uuid.UUID, from, to *time.Time, limit, offset int) ([]*StockMovement, error) {
	query := `
		SELECT id, product_id, type, quantity, reason, reference, user_id, before_qty, after_qty, created_at
		FROM stock_movements WHERE product_id = $1`
	args := []interface{}{productID}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	args = append(args, limit, offset)
	// Tiebreak on id so pages stay stable when movements share a timestamp.
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var movements []*StockMovement
	for rows.Next() {
		m := &StockMovement{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Quantity, &m.Reason,
			&m.Reference, &m.UserID, &m.BeforeQty, &m.AfterQty, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *postgresRepo) CreateApproval(ctx context.Context, a *PendingApproval) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock_approvals (id, product_id, delta, reason, user_id, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.ProductID, a.Delta, a.Reason, a.UserID, a.Status, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert approval: %w", err)
	}
	return nil
}
