package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/domain/user"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// Register creates an account and returns the user record with a bearer token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.users.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		var vErr *user.ValidationError
		switch {
		case errors.As(err, &vErr):
			respondError(w, r, http.StatusBadRequest, vErr.Error())
		case errors.Is(err, user.ErrUsernameTaken):
			respondError(w, r, http.StatusBadRequest, "username already taken")
		default:
			respondInternal(w, r, err)
		}
		return
	}

	respondJSON(w, r, http.StatusCreated, newSessionResponse(sess))
}

// Login authenticates credentials and returns the user record with a fresh
// bearer token. Bad credentials are a 400, matching the API contract.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sess, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondError(w, r, http.StatusBadRequest, "invalid credentials")
			return
		}
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, newSessionResponse(sess))
}

func newSessionResponse(sess *user.Session) sessionResponse {
	return sessionResponse{
		User: userResponse{
			ID:       sess.User.ID,
			Username: sess.User.Username,
			Email:    sess.User.Email,
		},
		Token: sess.Token,
	}
}
