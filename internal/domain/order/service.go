package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/product"
)

// ErrEmptyItems is returned when an order request carries no line items.
var ErrEmptyItems = errors.New("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Name is included for the customer-facing message.
type InsufficientStockError struct {
	ProductID string
	Name      string
}

func (e *InsufficientStockError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("not enough stock for %s", e.Name)
	}
	return fmt.Sprintf("not enough stock for product %s", e.ProductID)
}

// ItemRequest is a validated (product, quantity) pair from the request body.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// PlaceOrderRequest holds the input for placing an order. UserID is empty for
// guest orders.
type PlaceOrderRequest struct {
	UserID     string
	FullName   string
	Email      string
	Items      []ItemRequest
	CouponCode string
}

// Service encapsulates order placement business logic.
type Service struct {
	products product.Repository
	coupons  coupon.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	coupons coupon.Repository,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		now:      time.Now,
	}
}

// PlaceOrder validates every line item against the catalog and its stock,
// optionally applies a coupon, and commits the order atomically.
//
// Coupon handling here is deliberately forgiving: a code that is unknown,
// inactive, outside its validity window, or under its minimum cart value is
// ignored without error. The standalone coupon validator is the strict path.
//
// The stock check in this method is advisory; the order repository re-checks
// stock with a conditional decrement inside the commit transaction, so two
// concurrent orders can never both take the last unit.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Stock validation and price snapshot. No mutation happens here: if any
	// item fails, the order is rejected with stock untouched.
	items := make([]OrderItem, len(req.Items))
	subtotal := decimal.Zero
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}

		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", item.ProductID)
		}
		if p.Stock < item.Quantity {
			return nil, &InsufficientStockError{ProductID: p.ID, Name: p.Name}
		}

		items[i] = OrderItem{
			ID:        uuid.New().String(),
			ProductID: p.ID,
			Quantity:  item.Quantity,
			Price:     p.Price,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	total := subtotal.Round(2)

	// Optional coupon. Unusable codes are dropped silently; the coupon is
	// only recorded on the order when its discount was actually applied.
	couponID, couponCode := "", ""
	if req.CouponCode != "" {
		rule, err := s.coupons.FindActiveByCode(ctx, req.CouponCode)
		switch {
		case err == nil:
			if rule.InWindow(s.now()) && !subtotal.LessThan(rule.MinCartValue) {
				total = coupon.ApplyTo(rule, subtotal)
				couponID = rule.ID
				couponCode = rule.Code
			}
		case errors.Is(err, coupon.ErrInvalidCoupon):
			// Unknown or inactive code: keep the full total.
		default:
			return nil, errors.Wrap(err, "lookup coupon")
		}
	}

	o := &Order{
		ID:         uuid.New().String(),
		UserID:     req.UserID,
		FullName:   req.FullName,
		Email:      req.Email,
		Total:      total,
		CouponID:   couponID,
		CouponCode: couponCode,
		Status:     StatusPending,
		Items:      items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		var issErr *InsufficientStockError
		if errors.As(err, &issErr) {
			return nil, issErr
		}
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}
