package handler

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/coupon"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/repository"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplates.ExecuteTemplate(w, name, data); err != nil {
		respondInternal(w, r, errors.Wrapf(err, "render %s", name))
	}
}

// DashboardOrders renders the order list, newest first.
func (h *Handler) DashboardOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.ordrepo.List(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list orders"))
		return
	}

	renderTemplate(w, r, "orders.html", map[string]any{
		"Orders":   orders,
		"Statuses": []order.Status{order.StatusPending, order.StatusShipped, order.StatusCancelled},
	})
}

// DashboardStatusUpdate sets an order's status and redirects back to the
// order list. Unknown orders are a 404, not a silent no-op.
func (h *Handler) DashboardStatusUpdate(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]

	status := order.Status(r.PostFormValue("status"))
	if !order.ValidStatus(status) {
		respondError(w, r, http.StatusBadRequest, "unknown status")
		return
	}

	if err := h.ordrepo.UpdateStatus(r.Context(), orderID, status); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// DashboardProducts renders the product management page.
func (h *Handler) DashboardProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list products"))
		return
	}
	renderTemplate(w, r, "products.html", map[string]any{"Products": products})
}

// DashboardCreateProduct creates a product from the submitted form and
// redirects back to the list. Only field presence is validated here.
func (h *Handler) DashboardCreateProduct(w http.ResponseWriter, r *http.Request) {
	name := r.PostFormValue("name")
	if name == "" {
		respondError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	price, err := decimal.NewFromString(r.PostFormValue("price"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid price")
		return
	}

	stock := 0
	if s := r.PostFormValue("stock"); s != "" {
		stock, err = strconv.Atoi(s)
		if err != nil || stock < 0 {
			respondError(w, r, http.StatusBadRequest, "invalid stock")
			return
		}
	}

	p := &product.Product{
		ID:          uuid.New().String(),
		Name:        name,
		Description: r.PostFormValue("description"),
		Price:       price,
		Stock:       stock,
		Image:       r.PostFormValue("image"),
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondInternal(w, r, errors.Wrap(err, "create product"))
		return
	}

	http.Redirect(w, r, "/dashboard/products", http.StatusSeeOther)
}

// DashboardCoupons renders the coupon management page.
func (h *Handler) DashboardCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list coupons"))
		return
	}
	renderTemplate(w, r, "coupons.html", map[string]any{"Coupons": coupons})
}

// DashboardCreateCoupon creates a coupon from the submitted form. Validity
// bounds use RFC 3339 timestamps. Discount values are stored as submitted;
// a percentage above 100 is clamped only at application time.
func (h *Handler) DashboardCreateCoupon(w http.ResponseWriter, r *http.Request) {
	code := r.PostFormValue("code")
	if code == "" {
		respondError(w, r, http.StatusBadRequest, "code is required")
		return
	}

	discountType := coupon.DiscountType(r.PostFormValue("discount_type"))
	if discountType != coupon.DiscountPercentage && discountType != coupon.DiscountFlat {
		respondError(w, r, http.StatusBadRequest, "unknown discount type")
		return
	}

	value, err := decimal.NewFromString(r.PostFormValue("discount_value"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid discount value")
		return
	}

	minCart := decimal.Zero
	if s := r.PostFormValue("min_cart_value"); s != "" {
		if minCart, err = decimal.NewFromString(s); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid minimum cart value")
			return
		}
	}

	validFrom, err := time.Parse(time.RFC3339, r.PostFormValue("valid_from"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid valid_from timestamp")
		return
	}
	validTo, err := time.Parse(time.RFC3339, r.PostFormValue("valid_to"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid valid_to timestamp")
		return
	}

	c := &coupon.Rule{
		ID:           uuid.New().String(),
		Code:         code,
		DiscountType: discountType,
		Value:        value,
		MinCartValue: minCart,
		ValidFrom:    validFrom,
		ValidTo:      validTo,
		Active:       true,
	}
	if err := h.coupons.Create(r.Context(), c); err != nil {
		respondInternal(w, r, errors.Wrap(err, "create coupon"))
		return
	}

	http.Redirect(w, r, "/dashboard/coupons", http.StatusSeeOther)
}
