package model

// PomodoroSession is one completed focus interval for a task. Sessions are
// an append-only log: never updated, never deleted.
type PomodoroSession struct {
	ID          int64  `json:"id"`
	TaskID      int64  `json:"task_id"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at"`
	PlannedSecs int64  `json:"planned_secs"`
	ActualSecs  int64  `json:"actual_secs"`
	Note        string `json:"note"`
}
