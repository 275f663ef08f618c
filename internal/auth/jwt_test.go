package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/mariakisialiova/itechart-quiz/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-test-secret-that-is-long-and-safe-enough"

func TestNewTokenManager(t *testing.T) {
	t.Run("MissingSecret", func(t *testing.T) {
		_, err := auth.NewTokenManager("")
		assert.ErrorIs(t, err, auth.ErrMissingSecret)
	})

	t.Run("ValidSecret", func(t *testing.T) {
		m, err := auth.NewTokenManager(testSecret)
		require.NoError(t, err)
		assert.NotNil(t, m)
	})
}

func TestGenerateAndValidateJWT(t *testing.T) {
	m, err := auth.NewTokenManager(testSecret)
	require.NoError(t, err)
	userID := uuid.NewString()

	t.Run("ValidToken", func(t *testing.T) {
		tokenStr, err := m.GenerateJWT(userID, "alice", auth.RoleStaff, 5*time.Minute)
		require.NoError(t, err)

		claims, err := m.ValidateJWT(tokenStr)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		assert.Equal(t, auth.RoleStaff, claims.Role)
		assert.NotEmpty(t, claims.ID)

		identity, err := claims.Identity()
		require.NoError(t, err)
		assert.Equal(t, userID, identity.UserID.String())
		assert.True(t, identity.IsStaff())
		assert.Equal(t, claims.ID, identity.TokenID)
	})

	t.Run("UniqueTokenIDs", func(t *testing.T) {
		a, err := m.GenerateJWT(userID, "alice", auth.RoleUser, time.Minute)
		require.NoError(t, err)
		b, err := m.GenerateJWT(userID, "alice", auth.RoleUser, time.Minute)
		require.NoError(t, err)

		ca, err := m.ValidateJWT(a)
		require.NoError(t, err)
		cb, err := m.ValidateJWT(b)
		require.NoError(t, err)
		assert.NotEqual(t, ca.ID, cb.ID)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		tokenStr, err := m.GenerateJWT(userID, "alice", auth.RoleUser, -time.Minute)
		require.NoError(t, err)

		_, err = m.ValidateJWT(tokenStr)
		require.Error(t, err)
		assert.True(t, errors.Is(err, jwt.ErrTokenExpired), "got %v", err)
	})

	t.Run("InvalidSignature", func(t *testing.T) {
		other, err := auth.NewTokenManager("a-different-secret-that-is-also-long-enough")
		require.NoError(t, err)

		tokenStr, err := other.GenerateJWT(userID, "alice", auth.RoleUser, time.Minute)
		require.NoError(t, err)

		_, err = m.ValidateJWT(tokenStr)
		require.Error(t, err)
		assert.True(t, errors.Is(err, jwt.ErrTokenSignatureInvalid), "got %v", err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := m.ValidateJWT("not-a-token")
		assert.Error(t, err)
	})

	t.Run("InvalidUserID", func(t *testing.T) {
		tokenStr, err := m.GenerateJWT("user-123", "alice", auth.RoleUser, time.Minute)
		require.NoError(t, err)

		claims, err := m.ValidateJWT(tokenStr)
		require.NoError(t, err)
		_, err = claims.Identity()
		assert.Error(t, err)
	})
}
