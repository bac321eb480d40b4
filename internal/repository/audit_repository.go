package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"temanagement/api/internal/models"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert is idempotent on the event id; redelivered events are dropped.
func (r *AuditRepository) Insert(ctx context.Context, event models.AuthEvent) error {
	const query = `
		INSERT INTO audit_logs (id, entity_type, entity_id, action, actor_email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.EntityType,
		event.EntityID,
		event.Action,
		event.ActorEmail,
		event.CreatedAt,
	)
	return err
}

func (r *AuditRepository) ListByEntity(ctx context.Context, entityType string, entityID int64, limit int) ([]models.AuthEvent, error) {
	const query = `
		SELECT id, entity_type, entity_id, action, actor_email, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.AuthEvent
	for rows.Next() {
		var ev models.AuthEvent
		if err := rows.Scan(
			&ev.ID,
			&ev.EntityType,
			&ev.EntityID,
			&ev.Action,
			&ev.ActorEmail,
			&ev.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
