package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
	"github.com/oficios-app/marketplace-client/internal/core/ports"
)

// SessionStore holds the current bearer token and the identity parsed from
// its claims. Signature verification is the server's responsibility; the
// store only decodes the claims and rejects tokens that are already expired.
type SessionStore struct {
	mu     sync.RWMutex
	token  string
	userID uuid.UUID
	role   domain.Role
}

var _ ports.Session = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return &SessionStore{}
}

// SetToken stores the token after decoding its claims.
func (s *SessionStore) SetToken(tokenString string) error {
	if tokenString == "" {
		return apperrors.ErrMissingToken
	}

	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return apperrors.NewAuthError("malformed bearer token")
	}

	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return apperrors.ErrTokenExpired
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tokenString
	s.userID = claims.UserID
	s.role = claims.Role
	return nil
}

func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *SessionStore) UserID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *SessionStore) Role() domain.Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

// Clear wipes the session, e.g. on logout.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.userID = uuid.Nil
	s.role = ""
}
