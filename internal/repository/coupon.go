package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, discount_value, min_cart_value,
		valid_from, valid_to, active
		FROM coupons WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	listCouponsSQL = `SELECT id, code, discount_type, discount_value, min_cart_value,
		valid_from, valid_to, active
		FROM coupons ORDER BY code`

	createCouponSQL = `INSERT INTO coupons
		(id, code, discount_type, discount_value, min_cart_value, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindActiveByCode looks up an active coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no matching active coupon exists.
func (r *CouponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// List returns all coupons ordered by code, active or not. Used by the
// dashboard.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

// Create inserts a new coupon rule.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Rule) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, string(c.DiscountType), c.Value, c.MinCartValue,
		c.ValidFrom, c.ValidTo, c.Active,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule         coupon.Rule
		discountType string
		value        decimal.Decimal
		minCart      decimal.Decimal
		validFrom    time.Time
		validTo      time.Time
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &discountType, &value, &minCart,
		&validFrom, &validTo, &rule.Active,
	)
	rule.DiscountType = coupon.DiscountType(discountType)
	rule.Value = value
	rule.MinCartValue = minCart
	rule.ValidFrom = validFrom
	rule.ValidTo = validTo
	return rule, err
}
