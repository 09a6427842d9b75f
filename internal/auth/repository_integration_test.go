//go:build integration

package auth

import (
	"context"
	"testing"

	"github.com/sebuszqo/TaxManager/internal/db/dbtest"
	"github.com/sebuszqo/TaxManager/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoFactorRepository_Postgres(t *testing.T) {
	db := dbtest.NewPostgres(t)
	ctx := context.Background()
	userID := dbtest.InsertUser(t, db, "juan@example.com")
	repo := NewTwoFactorRepository(db)
	users := user.NewUserService(user.NewUserRepository(db))

	_, err := repo.GetTwoFactorSecret(ctx, userID)
	assert.ErrorIs(t, err, ErrTwoFactorNotRegistered)

	require.NoError(t, repo.SaveTwoFactorSecret(ctx, userID, "first"))
	require.NoError(t, repo.SaveTwoFactorSecret(ctx, userID, "second"))
	secret, err := repo.GetTwoFactorSecret(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "second", secret)

	require.NoError(t, repo.EnableTwoFactor(ctx, userID, google2FAAuthMethod))
	u, err := users.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.True(t, u.TwoFactorEnabled)
	assert.Equal(t, google2FAAuthMethod, u.TwoFactorMethod)

	require.NoError(t, repo.DisableTwoFactor(ctx, userID))
	u, err = users.GetUserByID(ctx, userID)
	require.NoError(t, err)
	assert.False(t, u.TwoFactorEnabled)
	_, err = repo.GetTwoFactorSecret(ctx, userID)
	assert.ErrorIs(t, err, ErrTwoFactorNotRegistered)
}
