package board

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"board-api/domain"
	"board-api/storage"
)

var errStoreDown = errors.New("store down")

// flakySource fails the chosen operations and otherwise defers to the
// repository.
type flakySource struct {
	*storage.Repository

	mu         sync.Mutex
	failStatus bool
	failUsers  bool
	listCalls  int
}

func (f *flakySource) UpdateStatus(ctx context.Context, id int64, status domain.TaskStatus, position *int) (domain.Task, error) {
	if f.failStatus {
		return domain.Task{}, errStoreDown
	}
	return f.Repository.UpdateStatus(ctx, id, status, position)
}

func (f *flakySource) ListUsers(ctx context.Context) ([]domain.User, error) {
	if f.failUsers {
		return nil, errStoreDown
	}
	return f.Repository.ListUsers(ctx)
}

func (f *flakySource) ListTasksByProject(ctx context.Context, projectID int64) ([]domain.Task, error) {
	f.mu.Lock()
	f.listCalls++
	f.mu.Unlock()
	return f.Repository.ListTasksByProject(ctx, projectID)
}

func newSource(t *testing.T) (*flakySource, domain.Project) {
	t.Helper()
	repo := storage.New()
	ctx := context.Background()
	p, err := repo.CreateProject(ctx, domain.NewProject{Name: "Website"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := repo.CreateUser(ctx, domain.NewUser{Name: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	for i, title := range []string{"Design", "Build", "Ship"} {
		if _, err := repo.CreateTask(ctx, domain.NewTask{ProjectID: p.ID, Title: title, Position: i}); err != nil {
			t.Fatalf("create task: %v", err)
		}
	}
	if _, err := repo.CreateTask(ctx, domain.NewTask{ProjectID: p.ID + 1, Title: "Elsewhere"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return &flakySource{Repository: repo}, p
}

func TestLoadReadsEverything(t *testing.T) {
	src, p := newSource(t)

	view, err := Load(context.Background(), src, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if view.Project.ID != p.ID {
		t.Fatalf("expected project %d, got %d", p.ID, view.Project.ID)
	}
	if len(view.Tasks) != 3 {
		t.Fatalf("expected 3 project tasks, got %d", len(view.Tasks))
	}
	if len(view.Users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(view.Users))
	}
	if cols := view.Columns(); len(cols.Todo) != 3 {
		t.Fatalf("expected all tasks in todo, got %#v", cols)
	}
}

func TestLoadFailsWhenAnyReadFails(t *testing.T) {
	src, p := newSource(t)
	src.failUsers = true

	view, err := Load(context.Background(), src, p.ID)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !reflect.DeepEqual(view, View{}) {
		t.Fatalf("expected empty view on failure, got %#v", view)
	}
}

func TestLoadMissingProject(t *testing.T) {
	src, _ := newSource(t)

	_, err := Load(context.Background(), src, 99)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMoveCommitsStoreRecord(t *testing.T) {
	src, p := newSource(t)
	ctx := context.Background()
	view, err := Load(ctx, src, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := NewModel(src, view)
	taskID := view.Tasks[0].ID

	mv, err := m.Begin(taskID, domain.StatusDone, 0)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if mv.Phase != Pending {
		t.Fatalf("expected pending, got %s", mv.Phase)
	}
	local := findTask(t, m.View(), taskID)
	if local.Status != domain.StatusDone || local.Progress != 100 {
		t.Fatalf("expected tentative done at 100%%, got %#v", local)
	}

	if err := m.Confirm(ctx, mv); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if mv.Phase != Committed {
		t.Fatalf("expected committed, got %s", mv.Phase)
	}
	stored, err := src.GetTask(ctx, taskID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got := findTask(t, m.View(), taskID); !reflect.DeepEqual(got, stored) {
		t.Fatalf("expected local record %#v to match store %#v", got, stored)
	}
	if err := m.Confirm(ctx, mv); !errors.Is(err, ErrMoveSettled) {
		t.Fatalf("expected settled error, got %v", err)
	}
}

func TestMoveRollsBackAndResyncs(t *testing.T) {
	src, p := newSource(t)
	ctx := context.Background()
	view, err := Load(ctx, src, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := NewModel(src, view)
	before := view.Tasks[1]
	callsBefore := src.listCalls

	// Another client adds a task while the move is in flight.
	if _, err := src.CreateTask(ctx, domain.NewTask{ProjectID: p.ID, Title: "Late"}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	src.failStatus = true

	mv, err := m.Move(ctx, before.ID, domain.StatusInProgress, 5)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store error, got %v", err)
	}
	if mv.Phase != RolledBack || !errors.Is(mv.Err, errStoreDown) {
		t.Fatalf("expected rolled back move, got %#v", mv)
	}
	if src.listCalls != callsBefore+1 {
		t.Fatalf("expected one resync, got %d", src.listCalls-callsBefore)
	}
	after := m.View()
	if len(after.Tasks) != 4 {
		t.Fatalf("expected resync to pick up new task, got %d tasks", len(after.Tasks))
	}
	if got := findTask(t, after, before.ID); !reflect.DeepEqual(got, before) {
		t.Fatalf("expected %#v restored, got %#v", before, got)
	}
}

func TestBeginRejectsUnknownTaskAndStatus(t *testing.T) {
	src, p := newSource(t)
	view, err := Load(context.Background(), src, p.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := NewModel(src, view)

	if _, err := m.Begin(404, domain.StatusDone, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := m.Begin(view.Tasks[0].ID, "blocked", 0); err == nil {
		t.Fatal("expected invalid status error")
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		Pending:    "pending",
		Committed:  "committed",
		RolledBack: "rolled-back",
		Phase(7):   "Phase(7)",
	}
	for phase, want := range cases {
		if got := phase.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func findTask(t *testing.T, v View, id int64) domain.Task {
	t.Helper()
	for _, task := range v.Tasks {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %d not in view", id)
	return domain.Task{}
}
