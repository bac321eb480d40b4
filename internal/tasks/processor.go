package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"temanagement/api/internal/models"
	"temanagement/api/internal/queue"
)

type AuditWriter interface {
	Insert(ctx context.Context, event models.AuthEvent) error
}

type TokenPurger interface {
	PurgeExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// Processor dispatches stream entries to the audit writer and the refresh
// token purge.
type Processor struct {
	audit  AuditWriter
	tokens TokenPurger
	now    func() time.Time
	logger zerolog.Logger
}

func NewProcessor(audit AuditWriter, tokens TokenPurger, logger zerolog.Logger) *Processor {
	return &Processor{
		audit:  audit,
		tokens: tokens,
		now:    time.Now,
		logger: logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	task, err := queue.DecodeTask(msg.Values)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch task.Type {
	case queue.TaskAudit:
		return p.handleAudit(ctx, task)
	case queue.TaskCleanup:
		return p.handleCleanup(ctx)
	default:
		p.logger.Warn().Str("type", task.Type).Str("message_id", msg.ID).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleAudit(ctx context.Context, task queue.Task) error {
	event, err := task.Event()
	if err != nil {
		// acked and dropped
		p.logger.Warn().Err(err).Msg("discarding audit task")
		return nil
	}
	if err := p.audit.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	p.logger.Debug().
		Str("action", string(event.Action)).
		Int64("user_id", event.EntityID).
		Msg("audit event stored")
	return nil
}

func (p *Processor) handleCleanup(ctx context.Context) error {
	purged, err := p.tokens.PurgeExpiredRefreshTokens(ctx, p.now())
	if err != nil {
		return fmt.Errorf("purge refresh tokens: %w", err)
	}
	p.logger.Info().Int64("purged", purged).Msg("expired refresh tokens cleared")
	return nil
}
