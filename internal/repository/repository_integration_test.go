package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"temanagement/api/internal/config"
	"temanagement/api/internal/database"
	"temanagement/api/internal/ids"
	"temanagement/api/internal/lockout"
	"temanagement/api/internal/models"
)

// newIntegrationPool connects to DATABASE_URL and migrates it. These tests
// write real rows, so they only run when explicitly enabled.
func newIntegrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("RUN_POSTGRES_INTEGRATION") != "true" {
		t.Skip("set RUN_POSTGRES_INTEGRATION=true to run repository integration tests")
	}

	_ = godotenv.Load("../../.env")
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, config.PostgresConfig{DSN: dsn, MaxOpen: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	return pool
}

func createTestUser(t *testing.T, users *UserRepository) (int64, string) {
	t.Helper()
	email := fmt.Sprintf("it_%d@temanagement.com", time.Now().UnixNano())
	id, err := users.Create(context.Background(), models.User{
		Email:         email,
		PasswordHash:  "$2a$10$placeholder",
		Role:          models.UserRoleEmployee,
		AccountStatus: models.AccountStatusActive,
	})
	require.NoError(t, err)
	return id, email
}

func TestUserRepositoryIntegration(t *testing.T) {
	pool := newIntegrationPool(t)
	users := NewUserRepository(pool)
	ctx := context.Background()

	id, email := createTestUser(t, users)

	_, err := users.Create(ctx, models.User{
		Email:         email,
		PasswordHash:  "x",
		Role:          models.UserRoleEmployee,
		AccountStatus: models.AccountStatusActive,
	})
	require.ErrorIs(t, err, ErrUserExists)

	found, err := users.FindByEmail(ctx, email)
	require.NoError(t, err)
	require.Equal(t, id, found.ID)
	require.Equal(t, models.UserRoleEmployee, found.Role)

	now := time.Now().UTC().Truncate(time.Second)
	policy := lockout.Policy{Threshold: 2, Duration: time.Minute}

	_, after, err := users.RecordLoginFailure(ctx, id, policy, now)
	require.NoError(t, err)
	require.Equal(t, 1, after.FailedAttempts)
	require.Nil(t, after.LockedUntil)

	before, after, err := users.RecordLoginFailure(ctx, id, policy, now)
	require.NoError(t, err)
	require.True(t, lockout.JustLocked(before, after, now))

	require.NoError(t, users.RecordLoginSuccess(ctx, id, now))
	got, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	require.Zero(t, got.FailedLoginAttempts)
	require.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)

	expires := now.Add(time.Hour)
	require.NoError(t, users.SaveRefreshToken(ctx, id, "first", expires))
	require.NoError(t, users.RotateRefreshToken(ctx, id, "first", "second", expires))
	require.ErrorIs(t, users.RotateRefreshToken(ctx, id, "first", "third", expires), ErrRefreshTokenMismatch)

	require.NoError(t, users.SaveRefreshToken(ctx, id, "stale", now.Add(-time.Minute)))
	purged, err := users.PurgeExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, purged, int64(1))

	got, err = users.GetByID(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got.RefreshToken)

	_, err = pool.Exec(ctx, `UPDATE users SET deleted_at = NOW() WHERE id = $1`, id)
	require.NoError(t, err)
	_, err = users.GetByID(ctx, id)
	require.True(t, errors.Is(err, ErrUserNotFound))
	require.ErrorIs(t, users.Unlock(ctx, id), ErrUserNotFound)
}

func TestProfileAndAuditRepositoryIntegration(t *testing.T) {
	pool := newIntegrationPool(t)
	users := NewUserRepository(pool)
	profiles := NewProfileRepository(pool)
	audit := NewAuditRepository(pool)
	ctx := context.Background()

	id, email := createTestUser(t, users)

	_, err := profiles.FindByUserID(ctx, id)
	require.ErrorIs(t, err, ErrProfileNotFound)

	deptID, err := profiles.EnsureDepartment(ctx, "IT Department", "Information Technology Department")
	require.NoError(t, err)
	again, err := profiles.EnsureDepartment(ctx, "IT Department", "ignored")
	require.NoError(t, err)
	require.Equal(t, deptID, again)

	require.NoError(t, profiles.Create(ctx, models.Profile{UserID: id, FirstName: "Ada", LastName: "Lovelace"}, deptID))
	profile, err := profiles.FindByUserID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "Ada", profile.FirstName)
	require.Equal(t, "IT Department", profile.Department)
	require.Nil(t, profile.AvatarURL)

	event := models.AuthEvent{
		ID:         ids.New(),
		EntityType: "user",
		EntityID:   id,
		Action:     models.AuthActionLoginSucceeded,
		ActorEmail: email,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, audit.Insert(ctx, event))
	require.NoError(t, audit.Insert(ctx, event))

	events, err := audit.ListByEntity(ctx, "user", id, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.AuthActionLoginSucceeded, events[0].Action)
}
