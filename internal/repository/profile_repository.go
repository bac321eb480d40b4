package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"temanagement/api/internal/models"
)

var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository reads the employee rows linked to credential records.
type ProfileRepository struct {
	pool *pgxpool.Pool
}

func NewProfileRepository(pool *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{pool: pool}
}

func (r *ProfileRepository) FindByUserID(ctx context.Context, userID int64) (models.Profile, error) {
	const query = `
		SELECT e.user_id, e.first_name, e.last_name, COALESCE(d.name, ''), e.avatar_url
		FROM employees e
		LEFT JOIN departments d ON d.id = e.department_id AND d.deleted_at IS NULL
		WHERE e.user_id = $1 AND e.deleted_at IS NULL
	`

	var p models.Profile
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Department,
		&p.AvatarURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

// EnsureDepartment returns the id of the live department called name,
// creating it when missing.
func (r *ProfileRepository) EnsureDepartment(ctx context.Context, name, description string) (int64, error) {
	const selectQuery = `SELECT id FROM departments WHERE name = $1 AND deleted_at IS NULL`
	const insertQuery = `
		INSERT INTO departments (name, description, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id
	`

	var id int64
	err := r.pool.QueryRow(ctx, selectQuery, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find department: %w", err)
	}

	if err := r.pool.QueryRow(ctx, insertQuery, name, description).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert department: %w", err)
	}
	return id, nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile models.Profile, departmentID int64) error {
	const query = `
		INSERT INTO employees (user_id, department_id, first_name, last_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		profile.UserID,
		departmentID,
		profile.FirstName,
		profile.LastName,
		profile.AvatarURL,
	)
	return err
}
