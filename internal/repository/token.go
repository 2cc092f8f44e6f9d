package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/user"
)

const (
	storeTokenSQL = `INSERT INTO auth_tokens (token_hash, user_id) VALUES ($1, $2)`

	getUserByTokenHashSQL = `SELECT u.id, u.username, u.email, u.password_hash, u.is_staff, u.created_at
		FROM auth_tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1`
)

var _ user.TokenRepository = (*TokenRepository)(nil)

// TokenRepository stores bearer tokens by their HMAC hash, backed by
// PostgreSQL. Plaintext tokens never reach this layer.
type TokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository returns a TokenRepository that uses the given pool.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// Store persists an issued token hash for the user.
func (r *TokenRepository) Store(ctx context.Context, tokenHash, userID string) error {
	if _, err := r.pool.Exec(ctx, storeTokenSQL, tokenHash, userID); err != nil {
		return fmt.Errorf("storing token for user %q: %w", userID, err)
	}
	return nil
}

// FindUserByHash resolves a token hash to its user. Returns
// user.ErrInvalidToken when the hash matches no issued token.
func (r *TokenRepository) FindUserByHash(ctx context.Context, tokenHash string) (*user.User, error) {
	var u user.User
	err := r.pool.QueryRow(ctx, getUserByTokenHashSQL, tokenHash).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Staff, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrInvalidToken
		}
		return nil, fmt.Errorf("finding user by token hash: %w", err)
	}
	return &u, nil
}
