package authtest

import (
	"context"
	"sync"

	"temanagement/api/internal/models"
)

// Recorder collects published auth events.
type Recorder struct {
	mu     sync.Mutex
	events []models.AuthEvent
	Err    error
}

func (r *Recorder) PublishAuthEvent(_ context.Context, event models.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Events() []models.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuthEvent(nil), r.events...)
}

func (r *Recorder) Actions() []models.AuthAction {
	events := r.Events()
	out := make([]models.AuthAction, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Action)
	}
	return out
}
