package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"temanagement/api/internal/models"
)

const maxStreamLen = 100000

type Producer struct {
	client *redis.Client
	stream string
}

func NewProducer(client *redis.Client, stream string) *Producer {
	return &Producer{client: client, stream: stream}
}

func (p *Producer) Enqueue(ctx context.Context, task Task) error {
	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: task.Values(),
	}).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", task.Type, err)
	}
	return nil
}

// PublishAuthEvent queues ev for the audit writer.
func (p *Producer) PublishAuthEvent(ctx context.Context, ev models.AuthEvent) error {
	return p.Enqueue(ctx, AuditTask(ev))
}
