package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"temanagement/api/internal/models"
)

const (
	TaskAudit   = "audit"
	TaskCleanup = "cleanup"
)

// Task is one stream entry. Redis stores every field as a string.
type Task struct {
	Type       string `json:"type"`
	EventID    string `json:"eventId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
	EntityID   int64  `json:"entityId,string,omitempty"`
	Action     string `json:"action,omitempty"`
	ActorEmail string `json:"actorEmail,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

func AuditTask(ev models.AuthEvent) Task {
	return Task{
		Type:       TaskAudit,
		EventID:    ev.ID,
		EntityType: ev.EntityType,
		EntityID:   ev.EntityID,
		Action:     string(ev.Action),
		ActorEmail: ev.ActorEmail,
		CreatedAt:  ev.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func CleanupTask() Task {
	return Task{Type: TaskCleanup}
}

// Values renders the task as XADD field/value pairs.
func (t Task) Values() map[string]any {
	values := map[string]any{"type": t.Type}
	if t.Type != TaskAudit {
		return values
	}
	values["eventId"] = t.EventID
	values["entityType"] = t.EntityType
	values["entityId"] = strconv.FormatInt(t.EntityID, 10)
	values["action"] = t.Action
	values["actorEmail"] = t.ActorEmail
	values["createdAt"] = t.CreatedAt
	return values
}

func DecodeTask(values map[string]interface{}) (Task, error) {
	var task Task
	bytes, err := json.Marshal(values)
	if err != nil {
		return Task{}, err
	}
	if err := json.Unmarshal(bytes, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

func (t Task) Event() (models.AuthEvent, error) {
	if t.Type != TaskAudit {
		return models.AuthEvent{}, fmt.Errorf("task %q is not an audit task", t.Type)
	}
	if t.EventID == "" {
		return models.AuthEvent{}, fmt.Errorf("audit task without event id")
	}
	createdAt, err := time.Parse(time.RFC3339Nano, t.CreatedAt)
	if err != nil {
		return models.AuthEvent{}, fmt.Errorf("parse createdAt: %w", err)
	}
	return models.AuthEvent{
		ID:         t.EventID,
		EntityType: t.EntityType,
		EntityID:   t.EntityID,
		Action:     models.AuthAction(t.Action),
		ActorEmail: t.ActorEmail,
		CreatedAt:  createdAt,
	}, nil
}
