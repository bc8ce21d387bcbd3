package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Change event types emitted after successful mutations.
const (
	ProjectCreated = "project-created"
	ProjectUpdated = "project-updated"
	ProjectDeleted = "project-deleted"
	TaskCreated    = "task-created"
	TaskUpdated    = "task-updated"
	TaskMoved      = "task-moved"
	TaskDeleted    = "task-deleted"
	FileAttached   = "file-attached"
	FileRemoved    = "file-removed"
	UserCreated    = "user-created"
	UserUpdated    = "user-updated"
	UserDeleted    = "user-deleted"
	CommentCreated = "comment-created"
	CommentUpdated = "comment-updated"
	CommentDeleted = "comment-deleted"
)

// Event describes a change applied to the store.
type Event struct {
	ID         string          `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   int64           `json:"entityId"`
	ProjectID  int64           `json:"projectId,omitempty"`
	Type       string          `json:"type"`
	Data       json.RawMessage `json:"data,omitempty"`
	Time       int64           `json:"time"`
}

// NewEvent builds an event carrying data as its JSON payload.
func NewEvent(typ, entityType string, entityID int64, data any) Event {
	ev := Event{
		ID:         uuid.NewString(),
		EntityType: entityType,
		EntityID:   entityID,
		Type:       typ,
		Time:       time.Now().UnixNano(),
	}
	if data != nil {
		if raw, err := json.Marshal(data); err == nil {
			ev.Data = raw
		}
	}
	return ev
}

// TaskEvent builds a task event scoped to the task's project.
func TaskEvent(typ string, t Task) Event {
	ev := NewEvent(typ, EntityTask, t.ID, t)
	ev.ProjectID = t.ProjectID
	return ev
}

// ProjectEvent builds a project event; the project is its own scope.
func ProjectEvent(typ string, p Project) Event {
	ev := NewEvent(typ, EntityProject, p.ID, p)
	ev.ProjectID = p.ID
	return ev
}
