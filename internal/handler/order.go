package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/storefront/internal/domain/order"
)

type placeOrderRequest struct {
	FullName   string              `json:"full_name"`
	Email      string              `json:"email"`
	Items      []order.ItemRequest `json:"items"`
	CouponCode string              `json:"coupon_code,omitempty"`
}

type placeOrderResponse struct {
	Message string  `json:"message"`
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total_amount"`
}

// PlaceOrder validates the incoming order, delegates to the order service,
// and maps domain errors onto the API taxonomy. A resolved identity binds
// the order to the user; anonymous callers place guest orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID := ""
	if u := IdentityFromContext(r.Context()); u != nil {
		userID = u.ID
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:     userID,
		FullName:   req.FullName,
		Email:      req.Email,
		Items:      req.Items,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		mapOrderError(w, r, err)
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Bool("order.coupon_applied", o.CouponID != ""),
	)
	h.metrics.recordOrder(r.Context(), o.Total.InexactFloat64(), userID == "", o.CouponID != "")

	respondJSON(w, r, http.StatusCreated, placeOrderResponse{
		Message: "Order placed successfully",
		OrderID: o.ID,
		Total:   o.Total.InexactFloat64(),
	})
}

// mapOrderError converts order-placement domain errors to API responses.
func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr  *order.InvalidQuantityError
		pnfErr *order.ProductNotFoundError
		issErr *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, r, http.StatusBadRequest, "cart is empty")
	case errors.As(err, &iqErr):
		respondError(w, r, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &pnfErr):
		respondError(w, r, http.StatusNotFound, pnfErr.Error())
	case errors.As(err, &issErr):
		respondError(w, r, http.StatusBadRequest, issErr.Error())
	default:
		respondInternal(w, r, err)
	}
}
