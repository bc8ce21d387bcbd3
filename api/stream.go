package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"board-api/domain"
)

// boardBroker wakes board stream subscribers of a project after a change.
type boardBroker struct {
	mu   sync.Mutex
	subs map[int64]map[chan struct{}]struct{}
}

func newBoardBroker() *boardBroker {
	return &boardBroker{subs: make(map[int64]map[chan struct{}]struct{})}
}

func (b *boardBroker) subscribe(projectID int64) chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	set, ok := b.subs[projectID]
	if !ok {
		set = make(map[chan struct{}]struct{})
		b.subs[projectID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *boardBroker) unsubscribe(projectID int64, ch chan struct{}) {
	b.mu.Lock()
	if set, ok := b.subs[projectID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.subs, projectID)
		}
	}
	b.mu.Unlock()
}

func (b *boardBroker) notify(projectID int64) {
	b.mu.Lock()
	for ch := range b.subs[projectID] {
		wake(ch)
	}
	b.mu.Unlock()
}

func (b *boardBroker) notifyAll() {
	b.mu.Lock()
	for _, set := range b.subs {
		for ch := range set {
			wake(ch)
		}
	}
	b.mu.Unlock()
}

// wake never blocks; a pending wake-up already covers this change.
func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Notifier fans change events out to board streams and the event outbox.
type Notifier struct {
	broker *boardBroker
	outbox *Outbox
	logger *log.Logger
}

// NewNotifier creates a notifier. A nil outbox keeps events in process.
func NewNotifier(outbox *Outbox, logger *log.Logger) *Notifier {
	return &Notifier{broker: newBoardBroker(), outbox: outbox, logger: logger}
}

// Emit wakes the streams of every project the events touch and queues the
// events for publication.
func (n *Notifier) Emit(events ...domain.Event) {
	for _, ev := range events {
		if ev.ProjectID != 0 {
			n.broker.notify(ev.ProjectID)
		}
	}
	if n.outbox == nil {
		return
	}
	if _, err := n.outbox.Submit(events...); err != nil {
		n.logger.WithFields(log.Fields{"count": len(events), "error": err}).Error("publish events inline failed")
	}
}

// Reshuffled wakes every stream. Used when tasks may have left a project.
func (n *Notifier) Reshuffled() {
	n.broker.notifyAll()
}

func streamBoard(store Store, notifier *Notifier, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		projectID, err := pathID(c, "id")
		if err != nil {
			return err
		}
		ctx := c.Request().Context()
		// The first read surfaces a missing project as a regular 404.
		board, err := store.Board(ctx, projectID)
		if err != nil {
			return err
		}

		res := c.Response()
		res.Header().Set(echo.HeaderContentType, "text/event-stream")
		res.Header().Set(echo.HeaderCacheControl, "no-cache")
		res.Header().Set(echo.HeaderConnection, "keep-alive")
		res.Header().Set("X-Accel-Buffering", "no")
		flusher, ok := res.Writer.(http.Flusher)
		if !ok {
			return echo.NewHTTPError(http.StatusInternalServerError, "stream unsupported")
		}

		ch := notifier.broker.subscribe(projectID)
		defer notifier.broker.unsubscribe(projectID, ch)
		res.WriteHeader(http.StatusOK)
		for {
			if err := writeEvent(res, board); err != nil {
				return nil
			}
			flusher.Flush()
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
			}
			board, err = store.Board(ctx, projectID)
			if errors.Is(err, domain.ErrNotFound) {
				_, _ = res.Write([]byte("event: deleted\ndata: {}\n\n"))
				flusher.Flush()
				return nil
			}
			if err != nil {
				logger.WithError(err).WithField("project_id", projectID).Error("board stream refresh failed")
				return nil
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}
