package domain

import (
	"math"
	"time"
)

// DueStats counts tasks per due bucket. Tasks without a due date are not
// counted.
type DueStats struct {
	Overdue  int `json:"overdue"`
	DueSoon  int `json:"dueSoon"`
	Upcoming int `json:"upcoming"`
}

func CountDueBuckets(tasks []Task, now time.Time) DueStats {
	var s DueStats
	for _, t := range tasks {
		if t.DueDate == nil {
			continue
		}
		switch BucketOf(*t.DueDate, now) {
		case DueOverdue:
			s.Overdue++
		case DueSoon:
			s.DueSoon++
		case DueUpcoming:
			s.Upcoming++
		}
	}
	return s
}

// Workload summarises the tasks assigned to one user.
type Workload struct {
	UserID          int64 `json:"userId"`
	TotalTasks      int   `json:"totalTasks"`
	CompletedTasks  int   `json:"completedTasks"`
	InProgressTasks int   `json:"inProgressTasks"`
	OverdueTasks    int   `json:"overdueTasks"`
	ProjectCount    int   `json:"projectCount"`
	CompletionRate  int   `json:"completionRate"`
}

// UserWorkload computes the workload of userID. Overdue only counts tasks
// that are not done.
func UserWorkload(userID int64, tasks []Task, now time.Time) Workload {
	w := Workload{UserID: userID}
	projects := make(map[int64]struct{})
	for _, t := range tasks {
		if t.AssigneeID == nil || *t.AssigneeID != userID {
			continue
		}
		w.TotalTasks++
		projects[t.ProjectID] = struct{}{}
		switch t.Status {
		case StatusDone:
			w.CompletedTasks++
		case StatusInProgress:
			w.InProgressTasks++
		}
		if t.Status != StatusDone && t.DueDate != nil && t.DueDate.Before(now) {
			w.OverdueTasks++
		}
	}
	w.ProjectCount = len(projects)
	if w.TotalTasks > 0 {
		w.CompletionRate = int(math.Round(float64(w.CompletedTasks) / float64(w.TotalTasks) * 100))
	}
	return w
}

// ProjectCounts counts projects per status.
type ProjectCounts struct {
	Total      int `json:"total"`
	Planning   int `json:"planning"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

func CountProjects(projects []Project) ProjectCounts {
	c := ProjectCounts{Total: len(projects)}
	for _, p := range projects {
		switch p.Status {
		case ProjectPlanning:
			c.Planning++
		case ProjectInProgress:
			c.InProgress++
		case ProjectCompleted:
			c.Completed++
		}
	}
	return c
}
