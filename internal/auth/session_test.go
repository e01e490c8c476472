package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficios-app/marketplace-client/internal/core/domain"
	apperrors "github.com/oficios-app/marketplace-client/internal/core/errors"
)

func TestSessionStoreSetToken(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := tm.GenerateToken(userID, domain.RoleCliente)
	require.NoError(t, err)

	store := NewSessionStore()
	require.NoError(t, store.SetToken(token))

	assert.Equal(t, token, store.Token())
	assert.Equal(t, userID, store.UserID())
	assert.Equal(t, domain.RoleCliente, store.Role())
}

func TestSessionStoreRejectsBadTokens(t *testing.T) {
	store := NewSessionStore()

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, store.SetToken(""), apperrors.ErrMissingToken)
	})

	t.Run("malformed", func(t *testing.T) {
		err := store.SetToken("definitely-not-a-jwt")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeAuthFailure, apperrors.CodeOf(err))
	})

	t.Run("expired", func(t *testing.T) {
		token := expiredToken(t, "test-secret")
		assert.ErrorIs(t, store.SetToken(token), apperrors.ErrTokenExpired)
	})

	// Failed updates must not clobber an existing session.
	assert.Empty(t, store.Token())
}

func TestSessionStoreClear(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	token, err := tm.GenerateToken(uuid.New(), domain.RoleTecnico)
	require.NoError(t, err)

	store := NewSessionStore()
	require.NoError(t, store.SetToken(token))
	store.Clear()

	assert.Empty(t, store.Token())
	assert.Equal(t, uuid.Nil, store.UserID())
	assert.Empty(t, string(store.Role()))
}
