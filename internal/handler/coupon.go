package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code      string  `json:"code"`
	CartValue float64 `json:"cart_value"`
}

type validateCouponResponse struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discount_type"`
	DiscountValue float64 `json:"discount_value"`
}

// ValidateCoupon is the strict pre-checkout check: unlike order placement it
// reports exactly why a code cannot be applied.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rule, err := h.coupval.Validate(r.Context(), req.Code, decimal.NewFromFloat(req.CartValue))
	if err != nil {
		var bmErr *coupon.BelowMinimumError
		switch {
		case errors.Is(err, coupon.ErrInvalidCoupon):
			respondError(w, r, http.StatusBadRequest, "invalid coupon code")
		case errors.Is(err, coupon.ErrCouponExpired):
			respondError(w, r, http.StatusBadRequest, "coupon expired")
		case errors.As(err, &bmErr):
			respondError(w, r, http.StatusBadRequest, bmErr.Error())
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusOK, validateCouponResponse{
		Code:          rule.Code,
		DiscountType:  string(rule.DiscountType),
		DiscountValue: rule.Value.InexactFloat64(),
	})
}
