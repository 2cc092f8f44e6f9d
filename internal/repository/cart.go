package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
)

const (
	getCartByUserSQL = `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`

	// Lazy creation: races between two requests for the same user collapse
	// onto the existing row via the unique constraint.
	createCartSQL = `INSERT INTO carts (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`

	listCartItemsSQL = `SELECT ci.id, ci.product_id, ci.quantity,
		p.id, p.name, p.description, p.price, p.stock, p.image
		FROM cart_items ci JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1 ORDER BY ci.id`

	// Upsert keyed on (cart, product): insert stores the quantity as given,
	// conflict increments the existing row by it.
	upsertCartItemSQL = `INSERT INTO cart_items (id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`

	// Ownership is enforced in the WHERE clause so a foreign item id deletes
	// nothing instead of leaking existence.
	removeCartItemSQL = `DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id = $1 AND ci.cart_id = c.id AND c.user_id = $2`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetOrCreate returns the user's cart, creating it on first access.
func (r *CartRepository) GetOrCreate(ctx context.Context, userID string) (*cart.Cart, error) {
	c, err := r.getByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if _, err := r.pool.Exec(ctx, createCartSQL, uuid.New().String(), userID); err != nil {
		return nil, fmt.Errorf("creating cart for user %q: %w", userID, err)
	}
	return r.getByUser(ctx, userID)
}

func (r *CartRepository) getByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	var (
		c         cart.Cart
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, getCartByUserSQL, userID).Scan(&c.ID, &c.UserID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}
	c.CreatedAt = createdAt
	return &c, nil
}

// ListItems returns the cart's items joined with their product snapshots.
func (r *CartRepository) ListItems(ctx context.Context, cartID string) ([]cart.ItemView, error) {
	rows, err := r.pool.Query(ctx, listCartItemsSQL, cartID)
	if err != nil {
		return nil, fmt.Errorf("listing items of cart %q: %w", cartID, err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// AddItem upserts a (cart, product) line with the given quantity.
func (r *CartRepository) AddItem(ctx context.Context, cartID, productID string, quantity int) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, uuid.New().String(), cartID, productID, quantity)
	if err != nil {
		return fmt.Errorf("adding product %q to cart %q: %w", productID, cartID, err)
	}
	return nil
}

// RemoveItem deletes the item when it belongs to a cart owned by userID.
// Returns cart.ErrItemNotFound otherwise.
func (r *CartRepository) RemoveItem(ctx context.Context, itemID, userID string) error {
	tag, err := r.pool.Exec(ctx, removeCartItemSQL, itemID, userID)
	if err != nil {
		return fmt.Errorf("removing cart item %q: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.ItemView, error) {
	var (
		v     cart.ItemView
		price decimal.Decimal
	)
	err := row.Scan(
		&v.ID, &v.ProductID, &v.Quantity,
		&v.Product.ID, &v.Product.Name, &v.Product.Description,
		&price, &v.Product.Stock, &v.Product.Image,
	)
	v.Product.Price = price
	return v, err
}
