package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/user"
)

// Handler owns the HTTP surface: the JSON storefront API and the staff
// dashboard. Business logic lives in the injected domain services.
type Handler struct {
	users    *user.Service
	products product.Repository
	coupons  coupon.Repository
	coupval  coupon.Validator
	carts    *cart.Service
	orders   *order.Service
	ordrepo  order.Repository
	metrics  *Metrics
}

// Instrument attaches the handler's metric instruments. Without it the
// handler serves fine but records nothing.
func (h *Handler) Instrument(m *Metrics) {
	h.metrics = m
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	users *user.Service,
	products product.Repository,
	coupons coupon.Repository,
	coupval coupon.Validator,
	carts *cart.Service,
	orders *order.Service,
	ordrepo order.Repository,
) *Handler {
	return &Handler{
		users:    users,
		products: products,
		coupons:  coupons,
		coupval:  coupval,
		carts:    carts,
		orders:   orders,
		ordrepo:  ordrepo,
	}
}

// Router builds the full route table. API routes live under /api; the staff
// dashboard under /dashboard.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", h.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/validate-coupon", h.ValidateCoupon).Methods(http.MethodPost)
	api.Handle("/place-order", h.WithIdentity(http.HandlerFunc(h.PlaceOrder))).Methods(http.MethodPost)
	api.Handle("/cart", h.RequireAuth(http.HandlerFunc(h.GetCart))).Methods(http.MethodGet)
	api.Handle("/cart", h.RequireAuth(http.HandlerFunc(h.AddToCart))).Methods(http.MethodPost)
	api.Handle("/cart/remove/{item_id}", h.RequireAuth(http.HandlerFunc(h.RemoveFromCart))).Methods(http.MethodDelete)

	dash := r.PathPrefix("/dashboard").Subrouter()
	dash.Use(h.RequireStaff)
	dash.HandleFunc("", h.DashboardOrders).Methods(http.MethodGet)
	dash.HandleFunc("/status-update/{order_id}", h.DashboardStatusUpdate).Methods(http.MethodPost)
	dash.HandleFunc("/products", h.DashboardProducts).Methods(http.MethodGet)
	dash.HandleFunc("/products", h.DashboardCreateProduct).Methods(http.MethodPost)
	dash.HandleFunc("/coupons", h.DashboardCoupons).Methods(http.MethodGet)
	dash.HandleFunc("/coupons", h.DashboardCreateCoupon).Methods(http.MethodPost)

	return r
}

// errorResponse is the wire shape of every error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	respondJSON(w, r, status, errorResponse{Code: status, Message: msg})
}

// respondInternal logs the error and hides its detail from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal server error")
}

// decodeBody decodes a JSON request body into v, rejecting unknown syntax
// with a 400. Returns false when the response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, r, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
