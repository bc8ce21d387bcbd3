package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// TaskStatus is the Kanban column a task belongs to.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// TaskStatuses lists the board columns in display order.
var TaskStatuses = []TaskStatus{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task represents a single board item.
type Task struct {
	ID           int64        `json:"id"`
	ProjectID    int64        `json:"projectId"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TaskStatus   `json:"status"`
	AssigneeID   *int64       `json:"assigneeId"`
	Progress     int          `json:"progress"`
	Position     int          `json:"position"`
	DueDate      *time.Time   `json:"dueDate,omitempty"`
	StartDate    *time.Time   `json:"startDate,omitempty"`
	Dependencies []int64      `json:"dependencies"`
	Attachments  []Attachment `json:"attachments"`
}

// Clone returns a deep copy of t so callers never share slices or pointers
// with the store.
func (t Task) Clone() Task {
	out := t
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		out.AssigneeID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	if t.StartDate != nil {
		d := *t.StartDate
		out.StartDate = &d
	}
	out.Dependencies = append(make([]int64, 0, len(t.Dependencies)), t.Dependencies...)
	out.Attachments = append(make([]Attachment, 0, len(t.Attachments)), t.Attachments...)
	return out
}

// Attachment is file metadata embedded in a task.
type Attachment struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// FileUpload describes a file to attach to a task.
type FileUpload struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// NewTask carries the caller supplied fields of a task to create.
type NewTask struct {
	ProjectID    int64      `json:"projectId"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Status       TaskStatus `json:"status,omitempty"`
	AssigneeID   *int64     `json:"assigneeId,omitempty"`
	Position     int        `json:"position"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	StartDate    *time.Time `json:"startDate,omitempty"`
	Dependencies []int64    `json:"dependencies,omitempty"`
}

// OptionalID distinguishes an absent JSON field from an explicit null so a
// patch can clear a nullable reference.
type OptionalID struct {
	Set   bool
	Value *int64
}

// SetID returns an OptionalID that assigns id.
func SetID(id int64) OptionalID { return OptionalID{Set: true, Value: &id} }

// ClearID returns an OptionalID that assigns null.
func ClearID() OptionalID { return OptionalID{Set: true} }

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// TaskPatch carries partial updates for a task. ID is accepted and ignored.
type TaskPatch struct {
	ID           *int64      `json:"id,omitempty"`
	ProjectID    *int64      `json:"projectId,omitempty"`
	Title        *string     `json:"title,omitempty"`
	Description  *string     `json:"description,omitempty"`
	Status       *TaskStatus `json:"status,omitempty"`
	AssigneeID   OptionalID  `json:"assigneeId"`
	Progress     *int        `json:"progress,omitempty"`
	Position     *int        `json:"position,omitempty"`
	DueDate      *time.Time  `json:"dueDate,omitempty"`
	StartDate    *time.Time  `json:"startDate,omitempty"`
	Dependencies *[]int64    `json:"dependencies,omitempty"`
}

// Apply merges the patch into t. Setting the status to done forces progress
// to 100; leaving done keeps the current progress.
func (patch TaskPatch) Apply(t *Task) {
	if patch.ProjectID != nil {
		t.ProjectID = *patch.ProjectID
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.AssigneeID.Set {
		if patch.AssigneeID.Value == nil {
			t.AssigneeID = nil
		} else {
			id := *patch.AssigneeID.Value
			t.AssigneeID = &id
		}
	}
	if patch.Progress != nil {
		t.Progress = *patch.Progress
	}
	if patch.Position != nil {
		t.Position = *patch.Position
	}
	if patch.DueDate != nil {
		d := *patch.DueDate
		t.DueDate = &d
	}
	if patch.StartDate != nil {
		d := *patch.StartDate
		t.StartDate = &d
	}
	if patch.Dependencies != nil {
		t.Dependencies = append(make([]int64, 0, len(*patch.Dependencies)), (*patch.Dependencies)...)
	}
	if patch.Status != nil {
		t.Status = *patch.Status
		if t.Status == StatusDone {
			t.Progress = 100
		}
	}
}
