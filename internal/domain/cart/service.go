package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/product"
)

// ErrInvalidQuantity is returned when an add request carries a non-positive
// quantity.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Service encapsulates cart business logic. All operations require a
// resolved user identity; the cart itself is created lazily.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service with the required dependencies.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Contents returns the user's cart items with embedded product snapshots and
// the total computed live at read time.
func (s *Service) Contents(ctx context.Context, userID string) (*Contents, error) {
	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}

	items, err := s.carts.ListItems(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart items")
	}

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Product.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	return &Contents{
		CartID: c.ID,
		Items:  items,
		Total:  total.Round(2),
	}, nil
}

// AddItem adds quantity units of a product to the user's cart. A product
// already in the cart has its quantity incremented; a new entry stores the
// quantity as given.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	// Reject unknown products before touching the cart.
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return product.ErrNotFound
		}
		return errors.Wrapf(err, "get product %s", productID)
	}

	c, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "get cart")
	}

	if err := s.carts.AddItem(ctx, c.ID, productID, quantity); err != nil {
		return errors.Wrap(err, "add cart item")
	}
	return nil
}

// RemoveItem deletes a cart item. The ownership check lives in the
// repository: an item in another user's cart reports ErrItemNotFound.
func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) error {
	if err := s.carts.RemoveItem(ctx, itemID, userID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return ErrItemNotFound
		}
		return errors.Wrap(err, "remove cart item")
	}
	return nil
}
