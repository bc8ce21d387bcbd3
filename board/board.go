// Package board is the client-side model of a project board: it loads the
// project, its tasks and the team together and applies drag and drop moves
// optimistically before the store confirms them.
package board

import (
	"context"

	"golang.org/x/sync/errgroup"

	"board-api/domain"
)

// Source is the subset of the store the board model reads and writes.
type Source interface {
	GetProject(ctx context.Context, id int64) (domain.Project, error)
	ListTasksByProject(ctx context.Context, projectID int64) ([]domain.Task, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus, position *int) (domain.Task, error)
}

// View is everything a board screen shows.
type View struct {
	Project domain.Project `json:"project"`
	Tasks   []domain.Task  `json:"tasks"`
	Users   []domain.User  `json:"users"`
}

// Columns groups the view's tasks into Kanban columns.
func (v View) Columns() domain.Board {
	return domain.BoardColumns(v.Project.ID, v.Tasks)
}

// Load reads the project, its tasks and all users concurrently. Any failing
// read fails the whole load.
func Load(ctx context.Context, src Source, projectID int64) (View, error) {
	var v View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := src.GetProject(gctx, projectID)
		v.Project = p
		return err
	})
	g.Go(func() error {
		tasks, err := src.ListTasksByProject(gctx, projectID)
		v.Tasks = tasks
		return err
	})
	g.Go(func() error {
		users, err := src.ListUsers(gctx)
		v.Users = users
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}
	return v, nil
}
