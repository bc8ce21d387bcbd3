package storage

import (
	"context"
	"fmt"

	"board-api/domain"
)

// AttachFile appends file metadata to the task. Attachment ids come from a
// repository-wide sequence so two uploads never collide.
func (r *Repository) AttachFile(ctx context.Context, taskID int64, file domain.FileUpload) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tasks.get(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	r.fileSeq++
	a := domain.Attachment{
		ID:         r.fileSeq,
		Name:       file.Name,
		Size:       file.Size,
		Type:       file.Type,
		URL:        file.URL,
		UploadedAt: r.now(),
	}
	if a.URL == "" {
		a.URL = fmt.Sprintf("/api/tasks/%d/files/%d", taskID, a.ID)
	}
	t.Attachments = append(t.Attachments, a)
	r.tasks.put(taskID, t)
	return t, nil
}

// RemoveFile drops one attachment from the task. Both an unknown task and an
// unknown attachment are reported as not found.
func (r *Repository) RemoveFile(ctx context.Context, taskID, fileID int64) (domain.Task, error) {
	if err := r.wait(ctx); err != nil {
		return domain.Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, err := r.tasks.get(taskID)
	if err != nil {
		return domain.Task{}, err
	}
	kept := make([]domain.Attachment, 0, len(t.Attachments))
	for _, a := range t.Attachments {
		if a.ID != fileID {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(t.Attachments) {
		return domain.Task{}, domain.NotFound(domain.EntityAttachment, fileID)
	}
	t.Attachments = kept
	r.tasks.put(taskID, t)
	return t, nil
}

// Files returns the attachments of a task in upload order.
func (r *Repository) Files(ctx context.Context, taskID int64) ([]domain.Attachment, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, err := r.tasks.get(taskID)
	if err != nil {
		return nil, err
	}
	return t.Attachments, nil
}
