package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/gorilla/mux"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/product"
)

type cartItemResponse struct {
	ID       string          `json:"id"`
	Quantity int             `json:"quantity"`
	Product  productResponse `json:"product"`
}

type cartResponse struct {
	CartID string             `json:"cart_id"`
	Items  []cartItemResponse `json:"items"`
	Total  float64            `json:"total_price"`
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// GetCart returns the authenticated user's cart with a live-computed total.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	u := IdentityFromContext(r.Context())

	contents, err := h.carts.Contents(r.Context(), u.ID)
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "read cart"))
		return
	}

	items := make([]cartItemResponse, len(contents.Items))
	for i, it := range contents.Items {
		items[i] = cartItemResponse{
			ID:       it.ID,
			Quantity: it.Quantity,
			Product:  newProductResponse(it.Product),
		}
	}

	respondJSON(w, r, http.StatusOK, cartResponse{
		CartID: contents.CartID,
		Items:  items,
		Total:  contents.Total.InexactFloat64(),
	})
}

// AddToCart adds a product to the authenticated user's cart.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	u := IdentityFromContext(r.Context())

	var req addToCartRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.carts.AddItem(r.Context(), u.ID, req.ProductID, req.Quantity)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrInvalidQuantity):
			respondError(w, r, http.StatusBadRequest, "quantity must be greater than 0")
		case errors.Is(err, product.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "product not found")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusCreated, map[string]string{"message": "Added to cart"})
}

// RemoveFromCart deletes a cart item. Items in other users' carts are
// indistinguishable from missing ones.
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	u := IdentityFromContext(r.Context())
	itemID := mux.Vars(r)["item_id"]

	if err := h.carts.RemoveItem(r.Context(), u.ID, itemID); err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			respondError(w, r, http.StatusNotFound, "cart item not found")
			return
		}
		respondInternal(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
