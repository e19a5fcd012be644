package domain

import (
	"context"
	"errors"
	"slices"
	"time"
)

// Sentinel errors for account and session operations.
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrInvalidToken    = errors.New("invalid or expired token")
)

// RoleAdmin is the session role allowed to manage the banned list.
const RoleAdmin = "admin"

// Account is a host-owned user account. Only the fields needed to
// resolve a purchaser's on-file email are read.
// swagger:model Account
type Account struct {
	ID    string `json:"id"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// Session holds the verified claims of a host-issued session token.
type Session struct {
	UserID string
	Email  string
	Roles  []string
}

// HasRole reports whether the session carries the given role.
func (s *Session) HasRole(role string) bool {
	return s != nil && slices.Contains(s.Roles, role)
}

// AccountRepository reads host accounts.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByLogin(ctx context.Context, login string) (*Account, error)
}

// TokenIssuer issues session tokens (e.g. JWT). Used by operator tooling;
// in production the host issues sessions.
type TokenIssuer interface {
	Issue(userID, email string, roles []string, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a session token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*Session, error)
}

// NonceManager creates and verifies anti-forgery tokens bound to an
// action and a user.
type NonceManager interface {
	Create(action, userID string) string
	Verify(nonce, action, userID string) bool
}
