package model

import "time"

// Task statuses. Stored as free-form strings; these are the values the
// kanban lanes use.
const (
	StatusNotStarted = "not started"
	StatusInProgress = "in progress"
	StatusDone       = "done"
)

// Task is a single todo item. When both StartTS and EndTS are set the task
// doubles as a scheduled calendar occurrence and HasTime is true.
type Task struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
	Status    string `json:"status"`
	TagID     *int64 `json:"tag_id,omitempty"`
	ProjectID *int64 `json:"project_id,omitempty"`
	DueDate   string `json:"due_date,omitempty"` // date-only ISO, e.g. 2024-01-15
	StartTS   string `json:"start_ts,omitempty"` // ISO8601, empty when unscheduled
	EndTS     string `json:"end_ts,omitempty"`
	HasTime   bool   `json:"has_time"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	SeriesID  *int64 `json:"series_id,omitempty"`
	Deleted   bool   `json:"deleted"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Scheduled reports whether the task carries a concrete time window.
func (t *Task) Scheduled() bool {
	return t.StartTS != "" && t.EndTS != ""
}

// Overdue reports whether the task's due date has passed.
func (t *Task) Overdue(now time.Time) bool {
	if t.DueDate == "" || t.Status == StatusDone {
		return false
	}
	due, err := time.Parse("2006-01-02", t.DueDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return due.Before(today)
}
