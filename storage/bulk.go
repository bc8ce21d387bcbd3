package storage

import (
	"context"

	"board-api/domain"
)

// BulkResult reports a best-effort bulk operation: the task records that were
// mutated, in request order, and the requested ids that did not exist.
type BulkResult struct {
	Tasks   []domain.Task `json:"tasks"`
	Skipped []int64       `json:"skipped"`
}

// BulkMove sets the status of every existing task, and its project when
// projectID is not nil. Moving to done forces progress to 100.
func (r *Repository) BulkMove(ctx context.Context, ids []int64, status domain.TaskStatus, projectID *int64) (BulkResult, error) {
	return r.BulkUpdate(ctx, ids, domain.TaskPatch{Status: &status, ProjectID: projectID})
}

// BulkAssign sets the assignee of every existing task. A nil assignee
// unassigns.
func (r *Repository) BulkAssign(ctx context.Context, ids []int64, assigneeID *int64) (BulkResult, error) {
	patch := domain.TaskPatch{AssigneeID: domain.ClearID()}
	if assigneeID != nil {
		patch.AssigneeID = domain.SetID(*assigneeID)
	}
	return r.BulkUpdate(ctx, ids, patch)
}

// BulkUpdate merges patch into every existing task. There is no rollback:
// missing ids are reported as skipped and the other tasks stay updated.
func (r *Repository) BulkUpdate(ctx context.Context, ids []int64, patch domain.TaskPatch) (BulkResult, error) {
	if err := r.wait(ctx); err != nil {
		return BulkResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := BulkResult{Tasks: []domain.Task{}, Skipped: []int64{}}
	for _, id := range uniqueIDs(ids) {
		t, err := r.tasks.get(id)
		if err != nil {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		patch.Apply(&t)
		r.tasks.put(id, t)
		res.Tasks = append(res.Tasks, t)
	}
	return res, nil
}

// BulkDelete removes every existing task. Removal is keyed by id, so the
// order of ids does not matter.
func (r *Repository) BulkDelete(ctx context.Context, ids []int64) (BulkResult, error) {
	if err := r.wait(ctx); err != nil {
		return BulkResult{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	res := BulkResult{Tasks: []domain.Task{}, Skipped: []int64{}}
	uniq := uniqueIDs(ids)
	for _, id := range uniq {
		if !r.tasks.has(id) {
			res.Skipped = append(res.Skipped, id)
		}
	}
	res.Tasks = append(res.Tasks, r.tasks.remove(uniq...)...)
	return res, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
