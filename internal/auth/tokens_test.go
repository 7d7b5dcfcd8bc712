package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentchat/pkg/models"
)

func TestTokenRoundTrip(t *testing.T) {
	ts := NewTokenService("test-secret")
	user := &models.User{ID: 7, Email: "user@example.com"}

	token, expiresAt, err := ts.CreateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := ts.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	ts := NewTokenService("secret-a")
	other := NewTokenService("secret-b")

	token, _, err := ts.CreateToken(&models.User{ID: 1, Email: "a@b.c"})
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	ts := NewTokenService("secret")
	_, err := ts.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2secret")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2secret", hash)

	assert.True(t, CheckPassword(hash, "hunter2secret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestUserStoreEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryUserStore()

	first := &models.User{Email: "dup@example.com"}
	require.NoError(t, store.Create(ctx, first))

	err := store.Create(ctx, &models.User{Email: "dup@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFirstAdmin(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryUserStore()

	_, err := store.FirstAdmin(ctx)
	assert.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, store.Create(ctx, &models.User{Email: "member@example.com"}))
	require.NoError(t, store.Create(ctx, &models.User{Email: "admin@example.com", IsAdmin: true}))
	require.NoError(t, store.Create(ctx, &models.User{Email: "admin2@example.com", IsAdmin: true}))

	admin, err := store.FirstAdmin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", admin.Email)
}
