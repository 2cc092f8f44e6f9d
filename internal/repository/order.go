package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, user_id, full_name, email, total_amount, coupon_id, status)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, NULLIF($6, ''), $7)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5)`

	// Conditional decrement: touches the row only when enough stock remains.
	// Zero affected rows means another order took the stock first.
	reserveStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`

	getStockNameSQL = `SELECT name FROM products WHERE id = $1`

	listOrdersSQL = `SELECT o.id, COALESCE(o.user_id, ''), o.full_name, o.email,
		o.total_amount, COALESCE(o.coupon_id, ''), COALESCE(c.code, ''), o.status, o.created_at
		FROM orders o LEFT JOIN coupons c ON c.id = o.coupon_id
		ORDER BY o.created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

// ErrOrderNotFound is returned when a status update targets an unknown order.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists an order, its line items, and the stock decrements in one
// transaction. Each decrement is conditional on remaining stock; a product
// that cannot cover its quantity aborts the whole transaction with an
// order.InsufficientStockError, so concurrent orders racing for the last
// unit resolve to exactly one winner.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin order tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.FullName, o.Email, o.Total, o.CouponID, string(o.Status),
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductID, item.Quantity, item.Price,
		)
		if err != nil {
			return fmt.Errorf("inserting order item for product %q: %w", item.ProductID, err)
		}

		tag, err := tx.Exec(ctx, reserveStockSQL, item.ProductID, item.Quantity)
		if err != nil {
			return fmt.Errorf("reserving stock for product %q: %w", item.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			issErr := &order.InsufficientStockError{ProductID: item.ProductID}
			// Best effort name for the customer-facing message.
			_ = tx.QueryRow(ctx, getStockNameSQL, item.ProductID).Scan(&issErr.Name)
			return issErr
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// List returns all orders newest-first with their coupon code resolved.
// Line items are not loaded; the dashboard list view does not need them.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the status of an order. Returns ErrOrderNotFound when the
// id matches no order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		total     decimal.Decimal
		status    string
		createdAt time.Time
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.FullName, &o.Email,
		&total, &o.CouponID, &o.CouponCode, &status, &createdAt,
	)
	o.Total = total
	o.Status = order.Status(status)
	o.CreatedAt = createdAt
	return o, err
}
