package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"board-api/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T, opts ...Option) *Repository {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(opts...)
}

func mustCreateTask(t *testing.T, r *Repository, in domain.NewTask) domain.Task {
	t.Helper()
	task, err := r.CreateTask(context.Background(), in)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func TestCreateThenGetProject(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	created, err := r.CreateProject(ctx, domain.NewProject{Name: "Launch", Description: "go live"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if created.Status != domain.ProjectPlanning {
		t.Fatalf("expected default status planning, got %q", created.Status)
	}
	if created.Progress != 0 || !created.CreatedAt.Equal(fixedNow) || !created.UpdatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected defaults: %#v", created)
	}
	got, err := r.GetProject(ctx, created.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if !reflect.DeepEqual(got, created) {
		t.Fatalf("expected %#v, got %#v", created, got)
	}
}

func TestUpdatePatchesAcrossEntities(t *testing.T) {
	ctx := context.Background()
	other := int64(99)
	cases := []struct {
		name   string
		create func(r *Repository) (int64, any, error)
		update func(r *Repository, id int64, withID bool) (any, error)
		get    func(r *Repository, id int64) (any, error)
	}{
		{
			name: "project",
			create: func(r *Repository) (int64, any, error) {
				p, err := r.CreateProject(ctx, domain.NewProject{Name: "Launch"})
				return p.ID, p, err
			},
			update: func(r *Repository, id int64, withID bool) (any, error) {
				var patch domain.ProjectPatch
				if withID {
					patch.ID = &other
				}
				return r.UpdateProject(ctx, id, patch)
			},
			get: func(r *Repository, id int64) (any, error) { return r.GetProject(ctx, id) },
		},
		{
			name: "task",
			create: func(r *Repository) (int64, any, error) {
				task, err := r.CreateTask(ctx, domain.NewTask{ProjectID: 1, Title: "Write docs"})
				return task.ID, task, err
			},
			update: func(r *Repository, id int64, withID bool) (any, error) {
				var patch domain.TaskPatch
				if withID {
					patch.ID = &other
				}
				return r.UpdateTask(ctx, id, patch)
			},
			get: func(r *Repository, id int64) (any, error) { return r.GetTask(ctx, id) },
		},
		{
			name: "user",
			create: func(r *Repository) (int64, any, error) {
				u, err := r.CreateUser(ctx, domain.NewUser{Name: "Ada", Email: "ada@example.com"})
				return u.ID, u, err
			},
			update: func(r *Repository, id int64, withID bool) (any, error) {
				var patch domain.UserPatch
				if withID {
					patch.ID = &other
				}
				return r.UpdateUser(ctx, id, patch)
			},
			get: func(r *Repository, id int64) (any, error) { return r.GetUser(ctx, id) },
		},
		{
			name: "comment",
			create: func(r *Repository) (int64, any, error) {
				c, err := r.CreateComment(ctx, domain.NewComment{TaskID: 1, AuthorID: 1, Content: "looks good"})
				return c.ID, c, err
			},
			update: func(r *Repository, id int64, withID bool) (any, error) {
				var patch domain.CommentPatch
				if withID {
					patch.ID = &other
				}
				return r.UpdateComment(ctx, id, patch)
			},
			get: func(r *Repository, id int64) (any, error) { return r.GetComment(ctx, id) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRepo(t)
			id, created, err := tc.create(r)
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			for _, withID := range []bool{false, true} {
				updated, err := tc.update(r, id, withID)
				if err != nil {
					t.Fatalf("update (id in patch: %v): %v", withID, err)
				}
				if !reflect.DeepEqual(updated, created) {
					t.Fatalf("expected unchanged record (id in patch: %v), got %#v", withID, updated)
				}
			}
			stored, err := tc.get(r, id)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if !reflect.DeepEqual(stored, created) {
				t.Fatalf("expected stored %#v, got %#v", created, stored)
			}
			if _, err := tc.get(r, other); !errors.Is(err, domain.ErrNotFound) {
				t.Fatalf("expected nothing under id %d, got %v", other, err)
			}
		})
	}
}

func TestUpdateProjectRefreshesUpdatedAt(t *testing.T) {
	now := fixedNow
	r := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()
	p, err := r.CreateProject(ctx, domain.NewProject{Name: "Launch"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	now = fixedNow.Add(time.Hour)
	name := "Launch v2"
	updated, err := r.UpdateProject(ctx, p.ID, domain.ProjectPatch{Name: &name})
	if err != nil {
		t.Fatalf("update project: %v", err)
	}
	if !updated.UpdatedAt.Equal(now) {
		t.Fatalf("expected updatedAt %v, got %v", now, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected createdAt to stay %v, got %v", fixedNow, updated.CreatedAt)
	}
	if updated.Name != name {
		t.Fatalf("expected name %q, got %q", name, updated.Name)
	}
}

func TestUpdateTaskIgnoresIDWhilePatching(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	task := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "Write docs"})

	other := int64(99)
	title := "Renamed"
	updated, err := r.UpdateTask(ctx, task.ID, domain.TaskPatch{ID: &other, Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != task.ID || updated.Title != title {
		t.Fatalf("unexpected task: %#v", updated)
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	r := newTestRepo(t)
	title := "x"
	_, err := r.UpdateTask(context.Background(), 42, domain.TaskPatch{Title: &title})
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Entity != domain.EntityTask || nf.ID != 42 {
		t.Fatalf("unexpected error detail: %#v", nf)
	}
}

func TestDeleteThenGetIsNotFound(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	u, err := r.CreateUser(ctx, domain.NewUser{Name: "Ana", Email: "ana@example.com", Role: "developer"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Avatar != domain.DefaultAvatar {
		t.Fatalf("expected default avatar, got %q", u.Avatar)
	}
	removed, err := r.DeleteUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if removed.ID != u.ID {
		t.Fatalf("expected removed user %d, got %d", u.ID, removed.ID)
	}
	if _, err := r.GetUser(ctx, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := r.DeleteUser(ctx, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestIDsAreNotReused(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	first := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "a"})
	second := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "b"})
	if _, err := r.DeleteTask(ctx, second.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	third := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "c"})
	if third.ID == first.ID || third.ID == second.ID {
		t.Fatalf("id %d was reused", third.ID)
	}
}

func TestListPreservesCreationOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	for _, title := range []string{"a", "b", "c"} {
		mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: title})
	}
	if _, err := r.DeleteTask(ctx, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, err := r.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	if !reflect.DeepEqual(titles, []string{"a", "c"}) {
		t.Fatalf("unexpected order: %v", titles)
	}
}

func TestReturnedTasksAreCopies(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	task := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "a", Dependencies: []int64{7}})
	task.Dependencies[0] = 8

	got, err := r.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Dependencies[0] != 7 {
		t.Fatalf("store shared slice with caller: %v", got.Dependencies)
	}
}

func TestUpdateStatusProgressRules(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	task := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "a"})
	progress := 40
	if _, err := r.UpdateTask(ctx, task.ID, domain.TaskPatch{Progress: &progress}); err != nil {
		t.Fatalf("update: %v", err)
	}

	moved, err := r.UpdateStatus(ctx, task.ID, domain.StatusInProgress, nil)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if moved.Status != domain.StatusInProgress || moved.Progress != 40 {
		t.Fatalf("expected in-progress at 40, got %s at %d", moved.Status, moved.Progress)
	}

	pos := 3
	done, err := r.UpdateStatus(ctx, task.ID, domain.StatusDone, &pos)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if done.Progress != 100 || done.Position != 3 {
		t.Fatalf("expected done at 100 in position 3, got %#v", done)
	}

	back, err := r.UpdateStatus(ctx, task.ID, domain.StatusTodo, nil)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if back.Progress != 100 || back.Position != 3 {
		t.Fatalf("leaving done must keep progress and position, got %#v", back)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	r := newTestRepo(t)
	task := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "a"})
	if task.Status != domain.StatusTodo || task.Progress != 0 {
		t.Fatalf("unexpected defaults: %#v", task)
	}
	if task.Attachments == nil || len(task.Attachments) != 0 {
		t.Fatalf("expected empty attachments, got %#v", task.Attachments)
	}
	if task.Dependencies == nil {
		t.Fatalf("expected empty dependencies, got nil")
	}
}

func TestDeleteProjectLeavesTasks(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	p, err := r.CreateProject(ctx, domain.NewProject{Name: "p"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	mustCreateTask(t, r, domain.NewTask{ProjectID: p.ID, Title: "orphan"})
	if _, err := r.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	tasks, err := r.ListTasksByProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected orphan task to remain, got %d", len(tasks))
	}
	if _, err := r.Board(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected board of deleted project to be not found, got %v", err)
	}
}

func TestBoardGroupsAndSorts(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	p, err := r.CreateProject(ctx, domain.NewProject{Name: "p"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	b1 := mustCreateTask(t, r, domain.NewTask{ProjectID: p.ID, Title: "b", Position: 2})
	a1 := mustCreateTask(t, r, domain.NewTask{ProjectID: p.ID, Title: "a", Position: 1})
	d := mustCreateTask(t, r, domain.NewTask{ProjectID: p.ID, Title: "d", Status: domain.StatusDone})
	mustCreateTask(t, r, domain.NewTask{ProjectID: p.ID + 1, Title: "elsewhere"})

	board, err := r.Board(ctx, p.ID)
	if err != nil {
		t.Fatalf("board: %v", err)
	}
	if len(board.Todo) != 2 || board.Todo[0].ID != a1.ID || board.Todo[1].ID != b1.ID {
		t.Fatalf("unexpected todo column: %#v", board.Todo)
	}
	if len(board.InProgress) != 0 {
		t.Fatalf("expected empty in-progress column, got %d", len(board.InProgress))
	}
	if len(board.Done) != 1 || board.Done[0].ID != d.ID {
		t.Fatalf("unexpected done column: %#v", board.Done)
	}
}

func TestCommentsByTask(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	if _, err := r.CreateComment(ctx, domain.NewComment{TaskID: 1, AuthorID: 2, Content: "hi"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if _, err := r.CreateComment(ctx, domain.NewComment{TaskID: 2, AuthorID: 2, Content: "other"}); err != nil {
		t.Fatalf("create comment: %v", err)
	}
	got, err := r.ListCommentsByTask(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Content != "hi" || !got[0].CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected comments: %#v", got)
	}
	none, err := r.ListCommentsByTask(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty slice, got %#v", none)
	}
}

func TestLatencyHonoursCancellation(t *testing.T) {
	r := newTestRepo(t, WithLatency(time.Hour))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.ListProjects(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("call did not return promptly")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	snap := r.Export()

	other := newTestRepo(t)
	other.Import(snap)
	if !reflect.DeepEqual(other.Export(), snap) {
		t.Fatalf("imported state differs from export")
	}
	task := mustCreateTask(t, other, domain.NewTask{ProjectID: 1, Title: "next"})
	if want := int64(len(snap.Tasks) + 1); task.ID != want {
		t.Fatalf("expected id counter to continue at %d, got %d", want, task.ID)
	}
}

func TestImportKeepsDeletedIDsRetired(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "first"})
	second := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "second"})
	withFile, err := r.AttachFile(ctx, second.ID, domain.FileUpload{Name: "spec.pdf"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	fileID := withFile.Attachments[0].ID
	p, err := r.CreateProject(ctx, domain.NewProject{Name: "gone"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if _, err := r.DeleteTask(ctx, second.ID); err != nil {
		t.Fatalf("delete task: %v", err)
	}
	if _, err := r.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}

	restored := newTestRepo(t)
	restored.Import(r.Export())

	next := mustCreateTask(t, restored, domain.NewTask{ProjectID: 1, Title: "third"})
	if next.ID <= second.ID {
		t.Fatalf("deleted task id %d handed out again as %d", second.ID, next.ID)
	}
	np, err := restored.CreateProject(ctx, domain.NewProject{Name: "new"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if np.ID <= p.ID {
		t.Fatalf("deleted project id %d handed out again as %d", p.ID, np.ID)
	}
	attached, err := restored.AttachFile(ctx, next.ID, domain.FileUpload{Name: "notes.txt"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := attached.Attachments[0].ID; got <= fileID {
		t.Fatalf("attachment id %d reused as %d", fileID, got)
	}
}

func TestImportPrefersHigherExistingID(t *testing.T) {
	r := newTestRepo(t)
	r.Import(Snapshot{
		Tasks:     []domain.Task{{ID: 7, ProjectID: 1, Title: "a"}},
		Sequences: map[string]int64{domain.EntityTask: 3},
	})
	if task := mustCreateTask(t, r, domain.NewTask{ProjectID: 1, Title: "b"}); task.ID != 8 {
		t.Fatalf("expected id 8, got %d", task.ID)
	}
}
