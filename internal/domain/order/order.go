package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the order lifecycle states. Orders are immutable after
// placement except for this field, which only the dashboard may change.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusCancelled Status = "Cancelled"
)

// ValidStatus reports whether s is one of the known lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusShipped, StatusCancelled:
		return true
	}
	return false
}

// Order is the persisted snapshot of a completed transaction. UserID is empty
// for guest orders and CouponID is empty when no discount was applied.
type Order struct {
	ID         string
	UserID     string
	FullName   string
	Email      string
	Total      decimal.Decimal
	CouponID   string
	CouponCode string
	Status     Status
	CreatedAt  time.Time
	Items      []OrderItem
}

// OrderItem is a single line item. Price is the product's unit price at
// validation time, decoupled from later catalog price changes.
type OrderItem struct {
	ID        string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Repository defines persistence operations for orders.
//
// Create must be atomic: the order row, its items, and the per-product stock
// decrements commit together or not at all. When any product lacks stock at
// commit time the implementation returns an InsufficientStockError and leaves
// no trace.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
