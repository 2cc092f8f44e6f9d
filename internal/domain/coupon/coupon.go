package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage subtracts a percentage of the cart subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat subtracts a fixed monetary amount.
	DiscountFlat DiscountType = "flat"
)

var (
	// ErrInvalidCoupon is returned when no active coupon matches the code.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is outside its validity window.
	ErrCouponExpired = errors.New("coupon expired")
)

// BelowMinimumError indicates the cart value does not meet the coupon's
// minimum cart value threshold.
type BelowMinimumError struct {
	MinCartValue decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum order should be %s", e.MinCartValue.StringFixed(2))
}

// Rule defines a coupon's discount behaviour and eligibility constraints.
type Rule struct {
	ID           string
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	MinCartValue decimal.Decimal
	ValidFrom    time.Time
	ValidTo      time.Time
	Active       bool
}

// InWindow reports whether now falls within [ValidFrom, ValidTo].
func (r *Rule) InWindow(now time.Time) bool {
	return !now.Before(r.ValidFrom) && !now.After(r.ValidTo)
}

// Repository provides lookup and mutation of coupon rules.
// FindActiveByCode returns ErrInvalidCoupon when no active coupon matches.
type Repository interface {
	FindActiveByCode(ctx context.Context, code string) (*Rule, error)
	List(ctx context.Context) ([]Rule, error)
	Create(ctx context.Context, r *Rule) error
}
