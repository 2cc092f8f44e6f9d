package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Validator performs the standalone pre-checkout coupon check. Unlike the
// order-placement path, which silently drops an unusable coupon, Validate
// reports exactly why a code cannot be applied.
type Validator interface {
	Validate(ctx context.Context, code string, cartValue decimal.Decimal) (*Rule, error)
}

// RepoValidator implements Validator by looking up coupon rules from a
// Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up an active coupon for the code and checks it against the
// cart value. It returns ErrInvalidCoupon when no active coupon matches,
// ErrCouponExpired outside the validity window, and a BelowMinimumError when
// the cart value is under the coupon's threshold. On success it returns the
// rule so the caller can present the discount fields.
func (v *RepoValidator) Validate(ctx context.Context, code string, cartValue decimal.Decimal) (*Rule, error) {
	rule, err := v.repo.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !rule.InWindow(v.now()) {
		return nil, ErrCouponExpired
	}

	if cartValue.LessThan(rule.MinCartValue) {
		return nil, &BelowMinimumError{MinCartValue: rule.MinCartValue}
	}

	return rule, nil
}
