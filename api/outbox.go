package api

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"board-api/domain"
)

// OutboxConfig sizes the event delivery pool.
type OutboxConfig struct {
	Workers        int
	Buffer         int
	PublishTimeout time.Duration
	HandoffTimeout time.Duration
}

func (c OutboxConfig) withDefaults() OutboxConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 30 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

var errOutboxClosed = errors.New("event outbox is closed")

// Outbox hands change events to a Publisher from a fixed pool of workers.
// When the buffer stays full past the handoff timeout the caller publishes
// inline instead.
type Outbox struct {
	cfg       OutboxConfig
	publisher Publisher
	logger    *log.Logger

	jobs chan []domain.Event
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewOutbox starts the worker pool.
func NewOutbox(publisher Publisher, cfg OutboxConfig, logger *log.Logger) *Outbox {
	if publisher == nil {
		panic("publisher is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	cfg = cfg.withDefaults()
	o := &Outbox{
		cfg:       cfg,
		publisher: publisher,
		logger:    logger,
		jobs:      make(chan []domain.Event, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		o.wg.Add(1)
		go o.worker(i)
	}
	logger.Infof("event outbox started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
		cfg.Workers, cfg.Buffer, cfg.PublishTimeout, cfg.HandoffTimeout)
	return o
}

func (o *Outbox) worker(id int) {
	defer o.wg.Done()
	for events := range o.jobs {
		if err := o.publish(events); err != nil {
			o.logger.WithFields(log.Fields{
				"worker": id,
				"count":  len(events),
				"error":  err,
			}).Error("publish events failed")
		}
	}
}

func (o *Outbox) publish(events []domain.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.PublishTimeout)
	defer cancel()
	return o.publisher.Publish(ctx, events...)
}

// Submit queues events for delivery. It reports whether the events were
// handed to a worker; false means they were published inline.
func (o *Outbox) Submit(events ...domain.Event) (bool, error) {
	if len(events) == 0 {
		return true, nil
	}
	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		return false, errOutboxClosed
	}
	queued := o.handoff(events)
	o.mu.RUnlock()
	if queued {
		return true, nil
	}
	o.logger.Warn("event buffer saturated; publishing inline")
	return false, o.publish(events)
}

func (o *Outbox) handoff(events []domain.Event) bool {
	select {
	case o.jobs <- events:
		return true
	default:
	}
	if o.cfg.HandoffTimeout <= 0 {
		return false
	}
	timer := time.NewTimer(o.cfg.HandoffTimeout)
	defer timer.Stop()
	select {
	case o.jobs <- events:
		return true
	case <-timer.C:
		return false
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (o *Outbox) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.jobs)
	o.mu.Unlock()
	o.wg.Wait()
}
