package storage

import (
	"context"

	"board-api/domain"
)

func (r *Repository) ListComments(ctx context.Context) ([]domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.comments.list(), nil
}

// ListCommentsByTask returns the comments of one task in creation order. An
// unknown task yields an empty list.
func (r *Repository) ListCommentsByTask(ctx context.Context, taskID int64) ([]domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.Comment{}
	for _, c := range r.comments.list() {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *Repository) GetComment(ctx context.Context, id int64) (domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Comment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.comments.get(id)
}

func (r *Repository) CreateComment(ctx context.Context, in domain.NewComment) (domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Comment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := domain.Comment{
		ID:        r.comments.nextID(),
		TaskID:    in.TaskID,
		AuthorID:  in.AuthorID,
		Content:   in.Content,
		CreatedAt: r.now(),
	}
	r.comments.put(c.ID, c)
	return c, nil
}

func (r *Repository) UpdateComment(ctx context.Context, id int64, patch domain.CommentPatch) (domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Comment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, err := r.comments.get(id)
	if err != nil {
		return domain.Comment{}, err
	}
	patch.Apply(&c)
	r.comments.put(id, c)
	return c, nil
}

func (r *Repository) DeleteComment(ctx context.Context, id int64) (domain.Comment, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Comment{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.comments.remove(id)
	if len(removed) == 0 {
		return domain.Comment{}, domain.NotFound(domain.EntityComment, id)
	}
	return removed[0], nil
}
