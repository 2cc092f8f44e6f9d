package user

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials is returned on login with a bad username/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned when a bearer token resolves no identity.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError describes a malformed registration or login field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// User is an account identity. Staff accounts may access the dashboard.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Staff        bool
	CreatedAt    time.Time
}

// Repository defines persistence operations for user accounts.
// Create returns ErrUsernameTaken on a username collision; GetByUsername
// returns ErrNotFound when absent.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
}

// TokenRepository stores issued bearer tokens by their HMAC-SHA256 hash.
// The plaintext token never reaches storage. FindUserByHash returns
// ErrInvalidToken when the hash matches no issued token.
type TokenRepository interface {
	Store(ctx context.Context, tokenHash, userID string) error
	FindUserByHash(ctx context.Context, tokenHash string) (*User, error)
}
