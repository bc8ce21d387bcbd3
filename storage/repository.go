package storage

import (
	"context"
	"sync"
	"time"

	"board-api/domain"
)

// Repository is the authoritative in-memory store for projects, tasks, users
// and comments. A single instance is built at process start and injected
// into handlers; tests construct their own.
type Repository struct {
	mu      sync.RWMutex
	latency time.Duration
	now     func() time.Time

	projects *collection[domain.Project]
	tasks    *collection[domain.Task]
	users    *collection[domain.User]
	comments *collection[domain.Comment]

	fileSeq int64
}

// Option configures a Repository.
type Option func(*Repository)

// WithLatency delays every store call by d to emulate a remote backend.
func WithLatency(d time.Duration) Option {
	return func(r *Repository) {
		if d > 0 {
			r.latency = d
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// New creates an empty repository.
func New(opts ...Option) *Repository {
	r := &Repository{
		now:      func() time.Time { return time.Now().UTC() },
		projects: newCollection[domain.Project](domain.EntityProject, nil),
		tasks:    newCollection(domain.EntityTask, domain.Task.Clone),
		users:    newCollection[domain.User](domain.EntityUser, nil),
		comments: newCollection[domain.Comment](domain.EntityComment, nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the repository clock reading, used by callers that filter
// relative to the store's notion of time.
func (r *Repository) Now() time.Time { return r.now() }

// wait applies the configured latency and honours cancellation.
func (r *Repository) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Snapshot is a full copy of the repository state. Sequences holds the id
// high-water mark per entity kind so deleted ids stay retired across
// restarts.
type Snapshot struct {
	Projects  []domain.Project `json:"projects"`
	Tasks     []domain.Task    `json:"tasks"`
	Users     []domain.User    `json:"users"`
	Comments  []domain.Comment `json:"comments"`
	Sequences map[string]int64 `json:"sequences,omitempty"`
}

// Empty reports whether the snapshot holds no entities and no id history.
func (s Snapshot) Empty() bool {
	return len(s.Projects) == 0 && len(s.Tasks) == 0 && len(s.Users) == 0 && len(s.Comments) == 0 &&
		len(s.Sequences) == 0
}

// Export copies the current state.
func (r *Repository) Export() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := Snapshot{
		Projects: r.projects.list(),
		Tasks:    r.tasks.list(),
		Users:    r.users.list(),
		Comments: r.comments.list(),
	}
	seqs := map[string]int64{
		domain.EntityProject:    r.projects.lastID,
		domain.EntityTask:       r.tasks.lastID,
		domain.EntityUser:       r.users.lastID,
		domain.EntityComment:    r.comments.lastID,
		domain.EntityAttachment: r.fileSeq,
	}
	for kind, last := range seqs {
		if last > 0 {
			if snap.Sequences == nil {
				snap.Sequences = make(map[string]int64, len(seqs))
			}
			snap.Sequences[kind] = last
		}
	}
	return snap
}

// Import replaces the current state with s. Id counters continue from the
// saved sequence or the highest imported id of each kind, whichever is larger.
func (r *Repository) Import(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects.reset()
	r.tasks.reset()
	r.users.reset()
	r.comments.reset()
	r.fileSeq = 0
	for _, p := range s.Projects {
		r.projects.put(p.ID, p)
	}
	for _, t := range s.Tasks {
		if t.Dependencies == nil {
			t.Dependencies = []int64{}
		}
		if t.Attachments == nil {
			t.Attachments = []domain.Attachment{}
		}
		for _, a := range t.Attachments {
			if a.ID > r.fileSeq {
				r.fileSeq = a.ID
			}
		}
		r.tasks.put(t.ID, t)
	}
	for _, u := range s.Users {
		r.users.put(u.ID, u)
	}
	for _, c := range s.Comments {
		r.comments.put(c.ID, c)
	}
	r.projects.raise(s.Sequences[domain.EntityProject])
	r.tasks.raise(s.Sequences[domain.EntityTask])
	r.users.raise(s.Sequences[domain.EntityUser])
	r.comments.raise(s.Sequences[domain.EntityComment])
	if seq := s.Sequences[domain.EntityAttachment]; seq > r.fileSeq {
		r.fileSeq = seq
	}
}
