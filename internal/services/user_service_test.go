package services

import (
	"context"
	"testing"
	"time"

	"transfer-ledger/internal/models"
	"transfer-ledger/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(store.NewMemoryStore(), zerolog.Nop())

	user, err := users.Register(ctx, &models.RegisterRequest{
		Username: "alice",
		Email:    " alice@example.com ",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, string(models.RoleUser), user.Role)
	assert.Zero(t, user.Balance)
	assert.True(t, user.NotificationsEnabled)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	_, err = users.Register(ctx, &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrUserExists)

	_, err = users.Register(ctx, &models.RegisterRequest{Email: "bob@example.com"})
	assert.ErrorIs(t, err, ErrMissingFields)

	got, err := users.Authenticate(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = users.Authenticate(ctx, &models.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, &models.LoginRequest{Email: "nobody@example.com", Password: "s3cret"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_UpdatePreferences(t *testing.T) {
	ctx := context.Background()
	users := NewUserService(store.NewMemoryStore(), zerolog.Nop())

	user, err := users.Register(ctx, &models.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)

	require.NoError(t, users.UpdatePreferences(ctx, user.ID, false))
	got, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.NotificationsEnabled)

	assert.ErrorIs(t, users.UpdatePreferences(ctx, "nobody", true), store.ErrNotFound)
}

func TestAuthService_Tokens(t *testing.T) {
	auth := NewAuthService("test-secret", zerolog.Nop())

	token, err := auth.GenerateToken("u1", "alice@example.com", "admin")
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)

	other := NewAuthService("other-secret", zerolog.Nop())
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)
}
