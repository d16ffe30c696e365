package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-chat/internal/testutil"
)

func TestUserRepository_FindOrCreateByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewTestDB(t))

	first, err := repo.FindOrCreateByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, first.LastSignInAt)

	again, err := repo.FindOrCreateByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	byID, err := repo.GetUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)

	missing, err := repo.GetUserByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
