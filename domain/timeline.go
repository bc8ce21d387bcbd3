package domain

import (
	"sort"
	"time"
)

// Timeline is the Gantt view of a set of tasks.
type Timeline struct {
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
	Days  int            `json:"days"`
	Items []TimelineItem `json:"items"`
}

// TimelineItem places one task on the timeline. Offset and Duration are in
// whole days; Duration includes both the start and the due day.
type TimelineItem struct {
	TaskID       int64      `json:"taskId"`
	ProjectID    int64      `json:"projectId"`
	Title        string     `json:"title"`
	Status       TaskStatus `json:"status"`
	AssigneeID   *int64     `json:"assigneeId"`
	Progress     int        `json:"progress"`
	Start        time.Time  `json:"start"`
	Due          time.Time  `json:"due"`
	Offset       int        `json:"offset"`
	Duration     int        `json:"duration"`
	Dependencies []int64    `json:"dependencies"`
}

// BuildTimeline lays out the tasks that carry both a start and a due date,
// ordered by start date. The timeline spans from the earliest start to the
// latest due date.
func BuildTimeline(tasks []Task) Timeline {
	dated := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.StartDate != nil && t.DueDate != nil {
			dated = append(dated, t)
		}
	}
	tl := Timeline{Items: []TimelineItem{}}
	if len(dated) == 0 {
		return tl
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].StartDate.Before(*dated[j].StartDate)
	})

	tl.Start = *dated[0].StartDate
	tl.End = *dated[0].DueDate
	for _, t := range dated {
		if t.DueDate.After(tl.End) {
			tl.End = *t.DueDate
		}
	}
	tl.Days = daysBetween(tl.Start, tl.End) + 1

	for _, t := range dated {
		deps := append(make([]int64, 0, len(t.Dependencies)), t.Dependencies...)
		tl.Items = append(tl.Items, TimelineItem{
			TaskID:       t.ID,
			ProjectID:    t.ProjectID,
			Title:        t.Title,
			Status:       t.Status,
			AssigneeID:   t.AssigneeID,
			Progress:     t.Progress,
			Start:        *t.StartDate,
			Due:          *t.DueDate,
			Offset:       daysBetween(tl.Start, *t.StartDate),
			Duration:     daysBetween(*t.StartDate, *t.DueDate) + 1,
			Dependencies: deps,
		})
	}
	return tl
}

// daysBetween counts full days from a to b, truncated toward zero.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
