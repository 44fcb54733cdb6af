package db_test

import (
	"context"
	"testing"
	"time"

	"agency-portal/db"
	"agency-portal/internal/testutil"
	"agency-portal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository(t *testing.T) {
	factory := testutil.SetupTestRepositoryFactory(t)
	repo := factory.NewUserRepository()
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		u := testutil.CreateTestUser()
		u.ID = ""
		u.Email = "  Mixed.Case@Example.com "
		require.NoError(t, repo.Create(ctx, u))
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "mixed.case@example.com", u.Email)

		byID, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, byID.Email)
		assert.Equal(t, "Test", byID.FirstName)
		assert.Equal(t, models.RoleAgent, byID.Role)
		assert.Equal(t, "not-a-real-hash", byID.Password)

		byEmail, err := repo.FindByEmail(ctx, "MIXED.CASE@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		first := testutil.CreateTestUser()
		require.NoError(t, repo.Create(ctx, first))

		second := testutil.CreateTestUser()
		second.Email = first.Email
		assert.ErrorIs(t, repo.Create(ctx, second), db.ErrDuplicate)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, db.ErrNotFound)
		_, err = repo.FindByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, db.ErrNotFound)
		assert.ErrorIs(t, repo.UpdatePassword(ctx, "missing", "x"), db.ErrNotFound)
	})

	t.Run("UpdatePassword", func(t *testing.T) {
		u := testutil.CreateTestUser()
		require.NoError(t, repo.Create(ctx, u))
		require.NoError(t, repo.UpdatePassword(ctx, u.ID, "new-hash"))

		got, err := repo.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.Password)
	})
}

func TestSiteSettingRepository(t *testing.T) {
	repo := testutil.SetupTestRepositoryFactory(t).NewSiteSettingRepository()
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, repo.Upsert(ctx, &models.SiteSetting{Key: "phone_number", Value: "1"}))
	require.NoError(t, repo.Upsert(ctx, &models.SiteSetting{Key: "company_name", Value: "Acme"}))
	require.NoError(t, repo.Upsert(ctx, &models.SiteSetting{Key: "phone_number", Value: "2"}))

	got, err := repo.FindByKey(ctx, "phone_number")
	require.NoError(t, err)
	assert.Equal(t, "2", got.Value)
	assert.NotNil(t, got.UpdatedAt)

	all, err = repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "company_name", all[0].Key)

	_, err = repo.FindByKey(ctx, "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestEventLogRepository(t *testing.T) {
	factory := testutil.SetupTestRepositoryFactory(t)
	repo := factory.NewEventLogRepository()
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	oldEvent := testutil.CreateTestEventLog("user-1")
	oldEvent.CreatedAt = &old
	require.NoError(t, repo.Create(ctx, oldEvent))
	assert.NotZero(t, oldEvent.ID)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestEventLog("user-1")))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestEventLog("user-2")))

	latest, err := repo.FindLatest(ctx, 10)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, oldEvent.ID, latest[2].ID)

	limited, err := repo.FindLatest(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	mine, err := repo.FindAllByUserID(ctx, "user-1", 10)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	latest, err = repo.FindLatest(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, latest, 2)
}
