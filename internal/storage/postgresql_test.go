package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crewdoghq/crewdog-client/internal/models"
)

func TestRegisterUserAndGet(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "jane@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	})
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	byEmail, err := storage.GetUserByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, uid, byEmail.UUID)
	assert.Equal(t, "user", byEmail.Role)
	assert.NotNil(t, byEmail.CreatedAt)

	byUID, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", byUID.Email)

	_, err = storage.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterUser_CreatesQuotaRow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "jane@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	})
	require.NoError(t, err)

	quota, err := storage.GetQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "none", quota.Status)
	assert.Equal(t, freeSearchCap, quota.SearchCap)
	assert.Equal(t, 0, quota.Used)
	assert.False(t, quota.FreeTryUsed)
	assert.False(t, quota.Unlimited)
}

func TestConsumeCredit_DecrementsUntilExhausted(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "jane@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	})
	require.NoError(t, err)

	for i := 1; i <= freeSearchCap; i++ {
		ok, err := storage.ConsumeCredit(ctx, uid)
		require.NoError(t, err)
		assert.True(t, ok, "списание %d должно пройти", i)

		quota, err := storage.GetQuota(ctx, uid)
		require.NoError(t, err)
		assert.Equal(t, i, quota.Used)
		assert.True(t, quota.FreeTryUsed)
	}

	ok, err := storage.ConsumeCredit(ctx, uid)
	require.NoError(t, err)
	assert.False(t, ok, "квота исчерпана, списание должно быть отклонено")

	quota, err := storage.GetQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, freeSearchCap, quota.Used)
}

func TestConsumeCredit_UnlimitedDoesNotIncrement(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "admin@example.com",
		PasswordHash: "hashedpassword",
		Role:         "admin",
	})
	require.NoError(t, err)

	_, err = storage.DB.ExecContext(ctx,
		`UPDATE account_summaries SET unlimited = TRUE, is_admin = TRUE WHERE user_uid = $1`, uid)
	require.NoError(t, err)

	for range 5 {
		ok, err := storage.ConsumeCredit(ctx, uid)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	quota, err := storage.GetQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, 0, quota.Used)
}

func TestUpdateSubscriptionStatus(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	uid, err := storage.RegisterUser(ctx, models.User{
		Email:        "jane@example.com",
		PasswordHash: "hashedpassword",
		Role:         "user",
	})
	require.NoError(t, err)

	require.NoError(t, storage.UpdateSubscriptionStatus(ctx, uid, "active"))
	quota, err := storage.GetQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "active", quota.Status)
	assert.Equal(t, proSearchCap, quota.SearchCap)

	require.NoError(t, storage.UpdateSubscriptionStatus(ctx, uid, "canceled"))
	quota, err = storage.GetQuota(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "canceled", quota.Status)
	assert.Equal(t, freeSearchCap, quota.SearchCap)
}

func TestGetQuota_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	_, err := storage.GetQuota(context.Background(), "7c9e6679-7425-40de-944b-e07fc1f90ae7")
	assert.ErrorIs(t, err, ErrQuotaNotFound)
}
