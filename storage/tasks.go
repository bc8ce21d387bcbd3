package storage

import (
	"context"

	"board-api/domain"
)

func (r *Repository) ListTasks(ctx context.Context) ([]domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks.list(), nil
}

// ListTasksByProject returns the tasks referencing projectID, whether or not
// the project still exists.
func (r *Repository) ListTasksByProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasksOf(projectID), nil
}

func (r *Repository) tasksOf(projectID int64) []domain.Task {
	out := []domain.Task{}
	for _, t := range r.tasks.list() {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out
}

// Board returns the Kanban columns of an existing project.
func (r *Repository) Board(ctx context.Context, projectID int64) (domain.Board, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Board{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.projects.has(projectID) {
		return domain.Board{}, domain.NotFound(domain.EntityProject, projectID)
	}
	return domain.BoardColumns(projectID, r.tasksOf(projectID)), nil
}

func (r *Repository) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks.get(id)
}

// CreateTask stores a new task with zero progress and no attachments. Status
// defaults to todo.
func (r *Repository) CreateTask(ctx context.Context, in domain.NewTask) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t := domain.Task{
		ID:           r.tasks.nextID(),
		ProjectID:    in.ProjectID,
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		AssigneeID:   in.AssigneeID,
		Progress:     0,
		Position:     in.Position,
		DueDate:      in.DueDate,
		StartDate:    in.StartDate,
		Dependencies: in.Dependencies,
		Attachments:  []domain.Attachment{},
	}
	if t.Status == "" {
		t.Status = domain.StatusTodo
	}
	t = t.Clone()
	r.tasks.put(t.ID, t)
	return t, nil
}

// UpdateTask merges patch into the task. The id never changes.
func (r *Repository) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tasks.get(id)
	if err != nil {
		return domain.Task{}, err
	}
	patch.Apply(&t)
	r.tasks.put(id, t)
	return t, nil
}

// UpdateStatus moves a task to a column. A nil position keeps the current
// one. Moving to done forces progress to 100.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus, position *int) (domain.Task, error) {
	return r.UpdateTask(ctx, id, domain.TaskPatch{Status: &status, Position: position})
}

func (r *Repository) DeleteTask(ctx context.Context, id int64) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.tasks.remove(id)
	if len(removed) == 0 {
		return domain.Task{}, domain.NotFound(domain.EntityTask, id)
	}
	return removed[0], nil
}
