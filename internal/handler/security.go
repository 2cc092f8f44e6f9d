package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/xenking/storefront/internal/domain/user"
)

// identityKey is the context key for the authenticated user.
type identityKey struct{}

// IdentityFromContext extracts the authenticated user from the context.
// It returns nil when the request is anonymous.
func IdentityFromContext(ctx context.Context) *user.User {
	if u, ok := ctx.Value(identityKey{}).(*user.User); ok {
		return u
	}
	return nil
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns an empty string when the header is absent or malformed.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return auth[len(prefix):]
	}
	return ""
}

// WithIdentity resolves the bearer token to a user when one is presented and
// stores it in the context. Anonymous requests pass through untouched; a
// token that resolves nothing is treated as anonymous, matching the
// guest-order behaviour of order placement.
func (h *Handler) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if u, err := h.users.Authenticate(r.Context(), token); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), identityKey{}, u))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a valid bearer token with 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}

		u, err := h.users.Authenticate(r.Context(), token)
		if err != nil {
			respondError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey{}, u)))
	})
}

// RequireStaff is RequireAuth plus a staff check; non-staff users get 403.
func (h *Handler) RequireStaff(next http.Handler) http.Handler {
	return h.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := IdentityFromContext(r.Context())
		if u == nil || !u.Staff {
			respondError(w, r, http.StatusForbidden, "staff access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}
