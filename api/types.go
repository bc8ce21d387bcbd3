package api

import (
	"context"
	"time"

	"board-api/domain"
	"board-api/storage"
)

// Store abstracts the entity repository for handlers.
type Store interface {
	Now() time.Time

	ListProjects(ctx context.Context) ([]domain.Project, error)
	GetProject(ctx context.Context, id int64) (domain.Project, error)
	CreateProject(ctx context.Context, in domain.NewProject) (domain.Project, error)
	UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (domain.Project, error)
	DeleteProject(ctx context.Context, id int64) (domain.Project, error)

	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]domain.Task, error)
	Board(ctx context.Context, projectID int64) (domain.Board, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus, position *int) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) (domain.Task, error)

	BulkMove(ctx context.Context, ids []int64, status domain.TaskStatus, projectID *int64) (storage.BulkResult, error)
	BulkAssign(ctx context.Context, ids []int64, assigneeID *int64) (storage.BulkResult, error)
	BulkUpdate(ctx context.Context, ids []int64, patch domain.TaskPatch) (storage.BulkResult, error)
	BulkDelete(ctx context.Context, ids []int64) (storage.BulkResult, error)

	AttachFile(ctx context.Context, taskID int64, file domain.FileUpload) (domain.Task, error)
	RemoveFile(ctx context.Context, taskID, fileID int64) (domain.Task, error)
	Files(ctx context.Context, taskID int64) ([]domain.Attachment, error)

	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id int64) (domain.User, error)
	CreateUser(ctx context.Context, in domain.NewUser) (domain.User, error)
	UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error)
	DeleteUser(ctx context.Context, id int64) (domain.User, error)

	ListComments(ctx context.Context) ([]domain.Comment, error)
	ListCommentsByTask(ctx context.Context, taskID int64) ([]domain.Comment, error)
	GetComment(ctx context.Context, id int64) (domain.Comment, error)
	CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error)
	UpdateComment(ctx context.Context, id int64, patch domain.CommentPatch) (domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) (domain.Comment, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (int64, error)
}

// Deduper prevents processing of duplicate bulk requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, scope, key string) (bool, error)
	// Remove deletes a previously added key, used when processing fails.
	Remove(ctx context.Context, scope, key string) error
}

// Publisher delivers change events to an external sink.
type Publisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}
