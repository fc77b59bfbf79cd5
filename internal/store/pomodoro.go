package store

import (
	"fmt"

	"github.com/tasktide/tasktide/internal/model"
)

// InsertPomodoroSession appends a completed focus interval to the log and
// returns its id. Sessions are never updated or deleted afterwards.
func (s *Store) InsertPomodoroSession(sess model.PomodoroSession) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO pomodoro_sessions
		(task_id, started_at, ended_at, planned_secs, actual_secs, note)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.TaskID, sess.StartedAt, sess.EndedAt, sess.PlannedSecs, sess.ActualSecs, sess.Note)
	if err != nil {
		return 0, fmt.Errorf("insert pomodoro session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert pomodoro session id: %w", err)
	}
	return id, nil
}

// ListPomodoroSessionsForTask returns a task's sessions, newest ended first.
func (s *Store) ListPomodoroSessionsForTask(taskID int64) ([]model.PomodoroSession, error) {
	rows, err := s.db.Query(`SELECT id, task_id, started_at, ended_at, planned_secs, actual_secs, note
		FROM pomodoro_sessions WHERE task_id = ? ORDER BY ended_at DESC, id DESC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query pomodoro sessions: %w", err)
	}
	defer rows.Close()

	var out []model.PomodoroSession
	for rows.Next() {
		var s model.PomodoroSession
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StartedAt, &s.EndedAt,
			&s.PlannedSecs, &s.ActualSecs, &s.Note); err != nil {
			return nil, fmt.Errorf("scan pomodoro session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
