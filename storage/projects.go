package storage

import (
	"context"

	"board-api/domain"
)

// ListProjects returns every project in creation order.
func (r *Repository) ListProjects(ctx context.Context) ([]domain.Project, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects.list(), nil
}

func (r *Repository) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Project{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.projects.get(id)
}

// CreateProject stores a new project with zero progress. Status defaults to
// planning.
func (r *Repository) CreateProject(ctx context.Context, in domain.NewProject) (domain.Project, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Project{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	p := domain.Project{
		ID:          r.projects.nextID(),
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Status == "" {
		p.Status = domain.ProjectPlanning
	}
	r.projects.put(p.ID, p)
	return p, nil
}

// UpdateProject merges patch into the project and refreshes UpdatedAt.
func (r *Repository) UpdateProject(ctx context.Context, id int64, patch domain.ProjectPatch) (domain.Project, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Project{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.projects.get(id)
	if err != nil {
		return domain.Project{}, err
	}
	patch.Apply(&p)
	p.UpdatedAt = r.now()
	r.projects.put(id, p)
	return p, nil
}

// DeleteProject removes the project. Tasks that reference it are kept.
func (r *Repository) DeleteProject(ctx context.Context, id int64) (domain.Project, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Project{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.projects.remove(id)
	if len(removed) == 0 {
		return domain.Project{}, domain.NotFound(domain.EntityProject, id)
	}
	return removed[0], nil
}
