package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"board-api/domain"
)

// Phase is the lifecycle stage of an optimistic move.
type Phase int

const (
	Pending Phase = iota
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Move tracks one drag and drop of a task.
type Move struct {
	TaskID   int64
	Status   domain.TaskStatus
	Position int
	Phase    Phase
	// Err is the store failure that rolled the move back.
	Err error

	previous domain.Task
}

var ErrMoveSettled = errors.New("move already settled")

// Model holds a board view and applies moves to it optimistically.
type Model struct {
	src Source

	mu   sync.Mutex
	view View
}

func NewModel(src Source, view View) *Model {
	return &Model{src: src, view: view}
}

// View returns a copy of the current local state.
func (m *Model) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.view
	v.Tasks = make([]domain.Task, len(m.view.Tasks))
	for i, t := range m.view.Tasks {
		v.Tasks[i] = t.Clone()
	}
	v.Users = append([]domain.User(nil), m.view.Users...)
	return v
}

// Begin applies the move locally and returns it in the Pending phase. The
// local record follows the store's rule that done forces progress to 100.
func (m *Model) Begin(taskID int64, status domain.TaskStatus, position int) (*Move, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("unknown status %q", status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(taskID)
	if i < 0 {
		return nil, domain.NotFound(domain.EntityTask, taskID)
	}
	mv := &Move{TaskID: taskID, Status: status, Position: position, Phase: Pending, previous: m.view.Tasks[i].Clone()}
	pos := position
	domain.TaskPatch{Status: &status, Position: &pos}.Apply(&m.view.Tasks[i])
	return mv, nil
}

// Confirm sends a pending move to the store. On success the local record is
// replaced by the store's. On failure the previous record is restored, the
// project's tasks are reloaded and the store error is returned.
func (m *Model) Confirm(ctx context.Context, mv *Move) error {
	if mv.Phase != Pending {
		return ErrMoveSettled
	}
	pos := mv.Position
	saved, err := m.src.UpdateStatus(ctx, mv.TaskID, mv.Status, &pos)
	if err == nil {
		m.mu.Lock()
		if i := m.indexOf(mv.TaskID); i >= 0 {
			m.view.Tasks[i] = saved
		}
		m.mu.Unlock()
		mv.Phase = Committed
		return nil
	}

	m.mu.Lock()
	if i := m.indexOf(mv.TaskID); i >= 0 {
		m.view.Tasks[i] = mv.previous
	}
	projectID := m.view.Project.ID
	m.mu.Unlock()
	mv.Phase = RolledBack
	mv.Err = err

	if rerr := m.resync(ctx, projectID); rerr != nil {
		return errors.Join(err, fmt.Errorf("resync board: %w", rerr))
	}
	return err
}

// Move is Begin followed by Confirm.
func (m *Model) Move(ctx context.Context, taskID int64, status domain.TaskStatus, position int) (*Move, error) {
	mv, err := m.Begin(taskID, status, position)
	if err != nil {
		return nil, err
	}
	return mv, m.Confirm(ctx, mv)
}

func (m *Model) resync(ctx context.Context, projectID int64) error {
	tasks, err := m.src.ListTasksByProject(ctx, projectID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.view.Tasks = tasks
	m.mu.Unlock()
	return nil
}

func (m *Model) indexOf(taskID int64) int {
	for i, t := range m.view.Tasks {
		if t.ID == taskID {
			return i
		}
	}
	return -1
}
