package api

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"board-api/domain"
	"board-api/storage"
)

func TestBrokerNotifiesOnlyProjectSubscribers(t *testing.T) {
	b := newBoardBroker()
	one := b.subscribe(1)
	two := b.subscribe(2)
	defer b.unsubscribe(1, one)
	defer b.unsubscribe(2, two)

	b.notify(1)
	b.notify(1)
	select {
	case <-one:
	default:
		t.Fatalf("expected wake-up for project 1")
	}
	select {
	case <-one:
		t.Fatalf("wake-ups must coalesce")
	default:
	}
	select {
	case <-two:
		t.Fatalf("project 2 must not be woken")
	default:
	}

	b.notifyAll()
	select {
	case <-two:
	default:
		t.Fatalf("expected wake-up for project 2")
	}
}

func TestBrokerUnsubscribeDropsEmptyProjects(t *testing.T) {
	b := newBoardBroker()
	ch := b.subscribe(5)
	b.unsubscribe(5, ch)
	if len(b.subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(b.subs))
	}
}

func TestStreamBoardPushesUpdates(t *testing.T) {
	logger, _ := test.NewNullLogger()
	repo := storage.New()
	ctx := context.Background()
	p, err := repo.CreateProject(ctx, domain.NewProject{Name: "p"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	notifier := NewNotifier(nil, logger)
	e := echo.New()
	Register(e, repo, StaticAuth{UserID: 1}, nil, notifier, logger)
	srv := httptest.NewServer(e)
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/api/projects/"+itoa(p.ID)+"/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get(echo.HeaderContentType); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := readBoardEvent(t, reader)
	if len(first.Todo) != 0 {
		t.Fatalf("expected empty board, got %#v", first)
	}

	task, err := repo.CreateTask(ctx, domain.NewTask{ProjectID: p.ID, Title: "a"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	notifier.Emit(domain.TaskEvent(domain.TaskCreated, task))

	second := readBoardEvent(t, reader)
	if len(second.Todo) != 1 || second.Todo[0].ID != task.ID {
		t.Fatalf("expected pushed board with the new task, got %#v", second)
	}
}

// failingBoardStore serves the first board and fails every later read.
type failingBoardStore struct {
	*storage.Repository
	calls atomic.Int32
}

func (s *failingBoardStore) Board(ctx context.Context, projectID int64) (domain.Board, error) {
	if s.calls.Add(1) > 1 {
		return domain.Board{}, errors.New("board read failed")
	}
	return s.Repository.Board(ctx, projectID)
}

func TestStreamLogsRefreshFailure(t *testing.T) {
	logger, hook := test.NewNullLogger()
	store := &failingBoardStore{Repository: storage.New()}
	ctx := context.Background()
	p, err := store.CreateProject(ctx, domain.NewProject{Name: "p"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	notifier := NewNotifier(nil, logger)
	e := echo.New()
	Register(e, store, StaticAuth{UserID: 1}, nil, notifier, logger)
	srv := httptest.NewServer(e)
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/api/projects/"+itoa(p.ID)+"/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	reader := bufio.NewReader(resp.Body)
	readBoardEvent(t, reader)

	notifier.Emit(domain.ProjectEvent(domain.ProjectUpdated, p))
	if _, err := io.Copy(io.Discard, reader); err != nil {
		t.Fatalf("drain stream: %v", err)
	}

	var found *log.Entry
	for _, entry := range hook.AllEntries() {
		if entry.Message == "board stream refresh failed" {
			found = entry
		}
	}
	if found == nil {
		t.Fatalf("expected refresh failure to be logged")
	}
	if found.Level != log.ErrorLevel || found.Data["project_id"] != p.ID || found.Data[log.ErrorKey] == nil {
		t.Fatalf("unexpected log entry: %#v", found.Data)
	}
}

func TestStreamMissingProject(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := s.do(t, http.MethodGet, "/api/projects/42/stream", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func readBoardEvent(t *testing.T, r *bufio.Reader) domain.Board {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var b domain.Board
		if err := sonic.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &b); err != nil {
			t.Fatalf("decode board: %v", err)
		}
		return b
	}
}
