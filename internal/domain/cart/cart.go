package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrItemNotFound is returned when a cart item does not exist or belongs to
// another user's cart. The two cases are indistinguishable on purpose: a
// caller must not learn whether someone else's item id is valid.
var ErrItemNotFound = errors.New("cart item not found")

// Cart is a user's mutable collection of line items. Exactly one cart exists
// per user, created lazily on first access; guest carts are not persisted.
type Cart struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

// Item is a single (product, quantity) entry. Unique per (cart, product):
// re-adding a product adjusts quantity instead of duplicating the row.
type Item struct {
	ID        string
	ProductID string
	Quantity  int
}

// ItemView is an Item joined with its current product snapshot for display.
type ItemView struct {
	Item
	Product product.Product
}

// Contents is a cart read: the items plus the live-computed total.
type Contents struct {
	CartID string
	Items  []ItemView
	Total  decimal.Decimal
}

// Repository defines persistence operations for carts.
//
// AddItem upserts on (cart, product): an insert stores quantity as given,
// a conflict increments the existing row by it. RemoveItem deletes the item
// only when its cart belongs to userID and returns ErrItemNotFound otherwise.
type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)
	ListItems(ctx context.Context, cartID string) ([]ItemView, error)
	AddItem(ctx context.Context, cartID, productID string, quantity int) error
	RemoveItem(ctx context.Context, itemID, userID string) error
}
