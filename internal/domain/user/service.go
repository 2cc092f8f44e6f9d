package user

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// tokenBytes is the entropy of an issued bearer token (hex-encoded on the wire).
const tokenBytes = 32

// Service issues identities and bearer tokens. Tokens are opaque random
// strings; only their HMAC-SHA256 (keyed with the configured pepper) is
// stored, so a leaked database does not leak usable tokens.
type Service struct {
	users  Repository
	tokens TokenRepository
	pepper []byte
}

// NewService creates a user Service with the given repositories and HMAC pepper.
func NewService(users Repository, tokens TokenRepository, pepper []byte) *Service {
	return &Service{users: users, tokens: tokens, pepper: pepper}
}

// Session is the result of a successful registration or login.
type Session struct {
	User  *User
	Token string
}

// Register creates an account and issues a bearer token for it.
func (s *Service) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Reason: "required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Reason: "required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        strings.TrimSpace(email),
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, errors.Wrap(err, "create user")
	}

	return s.issueToken(ctx, u)
}

// Login checks the credentials and issues a fresh bearer token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "get user")
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(ctx, u)
}

// Authenticate resolves a bearer token to its user. Any failure surfaces as
// ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	u, err := s.tokens.FindUserByHash(ctx, s.hashToken(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	return u, nil
}

func (s *Service) issueToken(ctx context.Context, u *User) (*Session, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, errors.Wrap(err, "generate token")
	}
	token := hex.EncodeToString(raw)

	if err := s.tokens.Store(ctx, s.hashToken(token), u.ID); err != nil {
		return nil, errors.Wrap(err, "store token")
	}

	return &Session{User: u, Token: token}, nil
}

func (s *Service) hashToken(token string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
