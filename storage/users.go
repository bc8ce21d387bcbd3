package storage

import (
	"context"

	"board-api/domain"
)

func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users.list(), nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return domain.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.users.get(id)
}

// CreateUser stores a new user, assigning the default avatar colour when
// none is given.
func (r *Repository) CreateUser(ctx context.Context, in domain.NewUser) (domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := domain.User{
		ID:     r.users.nextID(),
		Name:   in.Name,
		Email:  in.Email,
		Role:   in.Role,
		Avatar: in.Avatar,
	}
	if u.Avatar == "" {
		u.Avatar = domain.DefaultAvatar
	}
	r.users.put(u.ID, u)
	return u, nil
}

func (r *Repository) UpdateUser(ctx context.Context, id int64, patch domain.UserPatch) (domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u, err := r.users.get(id)
	if err != nil {
		return domain.User{}, err
	}
	patch.Apply(&u)
	r.users.put(id, u)
	return u, nil
}

// DeleteUser removes the user. Assignments and comments keep the dangling id.
func (r *Repository) DeleteUser(ctx context.Context, id int64) (domain.User, error) {
	if err := r.wait(ctx); err != nil {
		return domain.User{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := r.users.remove(id)
	if len(removed) == 0 {
		return domain.User{}, domain.NotFound(domain.EntityUser, id)
	}
	return removed[0], nil
}
