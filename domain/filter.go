package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DueBucket categorises a due date relative to a reference time.
type DueBucket string

const (
	DueOverdue  DueBucket = "overdue"
	DueSoon     DueBucket = "due-soon"
	DueUpcoming DueBucket = "upcoming"
)

// DueSoonWindow is the width of the due-soon bucket.
const DueSoonWindow = 24 * time.Hour

// ParseDueBucket validates a bucket name. The empty string and "all" mean no
// bucket filter.
func ParseDueBucket(s string) (DueBucket, error) {
	switch b := DueBucket(strings.ToLower(strings.TrimSpace(s))); b {
	case "", "all":
		return "", nil
	case DueOverdue, DueSoon, DueUpcoming:
		return b, nil
	default:
		return "", fmt.Errorf("unknown due bucket %q", s)
	}
}

// BucketOf places due relative to now. Overdue is strictly before now,
// due-soon is [now, now+24h) and upcoming is everything later.
func BucketOf(due, now time.Time) DueBucket {
	switch {
	case due.Before(now):
		return DueOverdue
	case due.Before(now.Add(DueSoonWindow)):
		return DueSoon
	default:
		return DueUpcoming
	}
}

// TaskFilter selects tasks. Zero values disable a criterion.
type TaskFilter struct {
	ProjectID  *int64
	AssigneeID *int64
	Status     TaskStatus
	Search     string
	Due        DueBucket
}

// Match reports whether t satisfies every criterion of f.
func (f TaskFilter) Match(t Task, now time.Time) bool {
	if f.ProjectID != nil && t.ProjectID != *f.ProjectID {
		return false
	}
	if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Search != "" && !containsFold(f.Search, t.Title, t.Description) {
		return false
	}
	if f.Due != "" {
		if t.DueDate == nil || BucketOf(*t.DueDate, now) != f.Due {
			return false
		}
	}
	return true
}

// FilterTasks returns the tasks matching f, preserving input order.
func FilterTasks(tasks []Task, f TaskFilter, now time.Time) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Match(t, now) {
			out = append(out, t)
		}
	}
	return out
}

// Board is the Kanban view of a project.
type Board struct {
	ProjectID  int64  `json:"projectId"`
	Todo       []Task `json:"todo"`
	InProgress []Task `json:"in-progress"`
	Done       []Task `json:"done"`
}

// Column returns the tasks of one status column.
func (b Board) Column(s TaskStatus) []Task {
	switch s {
	case StatusTodo:
		return b.Todo
	case StatusInProgress:
		return b.InProgress
	case StatusDone:
		return b.Done
	}
	return nil
}

// BoardColumns groups tasks by status, each column sorted ascending by
// position. Ties keep id order so the view is deterministic.
func BoardColumns(projectID int64, tasks []Task) Board {
	b := Board{ProjectID: projectID, Todo: []Task{}, InProgress: []Task{}, Done: []Task{}}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			b.Todo = append(b.Todo, t)
		case StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case StatusDone:
			b.Done = append(b.Done, t)
		}
	}
	for _, col := range [][]Task{b.Todo, b.InProgress, b.Done} {
		sortByPosition(col)
	}
	return b
}

func sortByPosition(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return tasks[i].ID < tasks[j].ID
	})
}

// ProjectFilter selects projects by free text and status.
type ProjectFilter struct {
	Search string
	Status ProjectStatus
}

func FilterProjects(projects []Project, f ProjectFilter) []Project {
	out := make([]Project, 0, len(projects))
	for _, p := range projects {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Search != "" && !containsFold(f.Search, p.Name, p.Description) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FilterUsers matches search against name, email and role.
func FilterUsers(users []User, search string) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		if search == "" || containsFold(search, u.Name, u.Email, u.Role) {
			out = append(out, u)
		}
	}
	return out
}

func containsFold(needle string, fields ...string) bool {
	n := strings.ToLower(needle)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), n) {
			return true
		}
	}
	return false
}
