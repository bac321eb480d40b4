package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"temanagement/api/internal/database"
	"temanagement/api/internal/lockout"
	"temanagement/api/internal/models"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")
)

const userColumns = `
	id, email, password_hash, role, account_status, failed_login_attempts, locked_until,
	last_login_at, refresh_token, refresh_token_expires_at, password_changed_at,
	created_at, updated_at, deleted_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (int64, error) {
	const query = `
		INSERT INTO users (email, password_hash, role, account_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, query, user.Email, user.PasswordHash, user.Role, user.AccountStatus).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND deleted_at IS NULL`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// RecordLoginFailure applies a failed attempt under a row lock and returns
// the counters before and after the transition.
func (r *UserRepository) RecordLoginFailure(ctx context.Context, id int64, policy lockout.Policy, now time.Time) (lockout.Counters, lockout.Counters, error) {
	const selectQuery = `
		SELECT failed_login_attempts, locked_until
		FROM users WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	const updateQuery = `
		UPDATE users SET failed_login_attempts = $2, locked_until = $3, updated_at = NOW()
		WHERE id = $1
	`

	var before, after lockout.Counters
	err := database.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, selectQuery, id).Scan(&before.FailedAttempts, &before.LockedUntil); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrUserNotFound
			}
			return err
		}

		after = policy.Apply(before, lockout.LoginFailed, now)
		_, err := tx.Exec(ctx, updateQuery, id, after.FailedAttempts, after.LockedUntil)
		return err
	})
	if err != nil {
		return lockout.Counters{}, lockout.Counters{}, err
	}
	return before, after, nil
}

func (r *UserRepository) RecordLoginSuccess(ctx context.Context, id int64, now time.Time) error {
	const query = `
		UPDATE users
		SET failed_login_attempts = 0, locked_until = NULL, last_login_at = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, id, now)
}

func (r *UserRepository) SaveRefreshToken(ctx context.Context, id int64, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET refresh_token = $2, refresh_token_expires_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, id, token, expiresAt)
}

// RotateRefreshToken swaps the stored token only if it still equals
// presented, so two concurrent refreshes cannot both succeed.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id int64, presented, token string, expiresAt time.Time) error {
	const query = `
		UPDATE users SET refresh_token = $3, refresh_token_expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND refresh_token = $2 AND deleted_at IS NULL
	`
	cmd, err := r.pool.Exec(ctx, query, id, presented, token, expiresAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRefreshTokenMismatch
	}
	return nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id int64) error {
	const query = `
		UPDATE users SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string, changedAt time.Time) error {
	const query = `
		UPDATE users SET password_hash = $2, password_changed_at = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, id, hash, changedAt)
}

func (r *UserRepository) Unlock(ctx context.Context, id int64) error {
	const query = `
		UPDATE users SET failed_login_attempts = 0, locked_until = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.execOne(ctx, query, id)
}

// PurgeExpiredRefreshTokens clears refresh tokens whose expiry is before now.
func (r *UserRepository) PurgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users SET refresh_token = NULL, refresh_token_expires_at = NULL, updated_at = NOW()
		WHERE refresh_token IS NOT NULL AND refresh_token_expires_at < $1
	`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var (
		user models.User
		role string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.AccountStatus,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastLoginAt,
		&user.RefreshToken,
		&user.RefreshTokenExpiresAt,
		&user.PasswordChangedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.DeletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}

	parsed, err := models.ParseRole(role)
	if err != nil {
		return models.User{}, fmt.Errorf("user %d: %w", user.ID, err)
	}
	user.Role = parsed
	return user, nil
}
