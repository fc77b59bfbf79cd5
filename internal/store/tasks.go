package store

import (
	"database/sql"
	"fmt"

	"github.com/tasktide/tasktide/internal/model"
)

const taskColumns = `id, title, notes, status, tag_id, project_id, due_date,
	start_ts, end_ts, has_time, parent_id, series_id, deleted, created_at, updated_at`

// TaskParams carries the writable fields of a task. ID zero inserts a new
// row; a non-zero ID updates the existing one.
type TaskParams struct {
	ID        int64
	Title     string
	Notes     string
	DueDate   string
	StartTS   string
	EndTS     string
	ParentID  *int64
	SeriesID  *int64
	TagID     *int64
	ProjectID *int64
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(sc rowScanner) (model.Task, error) {
	var t model.Task
	var tagID, projectID, parentID, seriesID sql.NullInt64
	var due, start, end sql.NullString
	var hasTime, deleted int

	err := sc.Scan(&t.ID, &t.Title, &t.Notes, &t.Status, &tagID, &projectID,
		&due, &start, &end, &hasTime, &parentID, &seriesID, &deleted,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Task{}, err
	}

	if tagID.Valid {
		t.TagID = &tagID.Int64
	}
	if projectID.Valid {
		t.ProjectID = &projectID.Int64
	}
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if seriesID.Valid {
		t.SeriesID = &seriesID.Int64
	}
	t.DueDate = due.String
	t.StartTS = start.String
	t.EndTS = end.String
	t.HasTime = hasTime != 0
	t.Deleted = deleted != 0
	return t, nil
}

func (s *Store) queryTasks(query string, args ...any) ([]model.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTasks returns all non-deleted backlog tasks (no time window), newest
// created first. These populate the kanban board.
func (s *Store) GetTasks() ([]model.Task, error) {
	return s.queryTasks(`SELECT ` + taskColumns + ` FROM tasks
		WHERE deleted = 0 AND (has_time IS NULL OR has_time = 0)
		ORDER BY created_at DESC, id DESC`)
}

// GetAllTasks returns every non-deleted task regardless of scheduling.
func (s *Store) GetAllTasks() ([]model.Task, error) {
	return s.queryTasks(`SELECT ` + taskColumns + ` FROM tasks
		WHERE deleted = 0 ORDER BY created_at DESC, id DESC`)
}

// GetEvents returns non-deleted scheduled tasks ordered by start time. These
// populate the calendar.
func (s *Store) GetEvents() ([]model.Task, error) {
	return s.queryTasks(`SELECT ` + taskColumns + ` FROM tasks
		WHERE deleted = 0 AND has_time = 1
		  AND start_ts IS NOT NULL AND end_ts IS NOT NULL
		ORDER BY start_ts ASC`)
}

// GetTaskByID returns a single task, including soft-deleted rows.
func (s *Store) GetTaskByID(id int64) (model.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// Subtasks returns the non-deleted children of a task.
func (s *Store) Subtasks(parentID int64) ([]model.Task, error) {
	return s.queryTasks(`SELECT `+taskColumns+` FROM tasks
		WHERE deleted = 0 AND parent_id = ?
		ORDER BY created_at DESC, id DESC`, parentID)
}

func taskPayload(id int64, p TaskParams, hasTime bool) map[string]any {
	return map[string]any{
		"id":         id,
		"title":      p.Title,
		"notes":      p.Notes,
		"due_date":   nullableStr(p.DueDate),
		"start_ts":   nullableStr(p.StartTS),
		"end_ts":     nullableStr(p.EndTS),
		"has_time":   hasTime,
		"parent_id":  p.ParentID,
		"series_id":  p.SeriesID,
		"tag_id":     p.TagID,
		"project_id": p.ProjectID,
	}
}

func nullableStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertTask inserts or updates a task and mirrors the full field set into
// the sync queue. has_time is always recomputed from the joint presence of
// start and end; status is never touched here.
func (s *Store) UpsertTask(p TaskParams) (int64, error) {
	hasTime := p.StartTS != "" && p.EndTS != ""
	now := nowISO()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := p.ID
	if id != 0 {
		_, err = tx.Exec(`UPDATE tasks SET title=?, notes=?, due_date=?, start_ts=?,
			end_ts=?, has_time=?, parent_id=?, series_id=?, tag_id=?, project_id=?, updated_at=?
			WHERE id=?`,
			p.Title, p.Notes, nullableStr(p.DueDate), nullableStr(p.StartTS),
			nullableStr(p.EndTS), boolInt(hasTime), p.ParentID, p.SeriesID,
			p.TagID, p.ProjectID, now, id)
		if err != nil {
			return 0, fmt.Errorf("update task %d: %w", id, err)
		}
	} else {
		res, err := tx.Exec(`INSERT INTO tasks (title, notes, status, due_date, start_ts,
			end_ts, has_time, parent_id, series_id, tag_id, project_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.Title, p.Notes, model.StatusNotStarted, nullableStr(p.DueDate),
			nullableStr(p.StartTS), nullableStr(p.EndTS), boolInt(hasTime),
			p.ParentID, p.SeriesID, p.TagID, p.ProjectID, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert task: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("insert task id: %w", err)
		}
	}

	if err := enqueueTx(tx, "tasks", model.OpUpsert, taskPayload(id, p, hasTime)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// DeleteTask soft-deletes a task and enqueues a remote delete. Deleting an
// already-deleted or unknown id is a side-effect-free success.
func (s *Store) DeleteTask(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE tasks SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		nowISO(), id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil
	}

	if err := enqueueTx(tx, "tasks", model.OpDelete, map[string]any{"id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// SetTaskStatus writes only the status column. Title, notes and scheduling
// fields are never touched by a status change.
func (s *Store) SetTaskStatus(id int64, status string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, nowISO(), id); err != nil {
		return fmt.Errorf("set status %d: %w", id, err)
	}
	payload := map[string]any{"id": id, "status": status}
	if err := enqueueTx(tx, "tasks", model.OpUpsert, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// SetTaskTimes writes the scheduling window and recomputes has_time. The
// queued payload carries the task's tag and project ids when present so the
// remote mirror keeps its denormalized filter fields.
func (s *Store) SetTaskTimes(id int64, startTS, endTS string) error {
	hasTime := startTS != "" && endTS != ""

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tasks SET start_ts = ?, end_ts = ?, has_time = ?, updated_at = ?
		WHERE id = ?`,
		nullableStr(startTS), nullableStr(endTS), boolInt(hasTime), nowISO(), id); err != nil {
		return fmt.Errorf("set times %d: %w", id, err)
	}

	payload := map[string]any{
		"id":       id,
		"start_ts": nullableStr(startTS),
		"end_ts":   nullableStr(endTS),
		"has_time": hasTime,
	}
	var tagID, projectID sql.NullInt64
	err = tx.QueryRow(`SELECT tag_id, project_id FROM tasks WHERE id = ?`, id).
		Scan(&tagID, &projectID)
	if err == nil {
		if tagID.Valid {
			payload["tag_id"] = tagID.Int64
		}
		if projectID.Valid {
			payload["project_id"] = projectID.Int64
		}
	}

	if err := enqueueTx(tx, "tasks", model.OpUpsert, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// SetTaskParent moves a task under a parent (or detaches it with nil).
func (s *Store) SetTaskParent(id int64, parentID *int64) error {
	return s.setTaskRef(id, "parent_id", parentID)
}

// SetTaskTag assigns or clears the task's tag.
func (s *Store) SetTaskTag(id int64, tagID *int64) error {
	return s.setTaskRef(id, "tag_id", tagID)
}

// SetTaskProject assigns or clears the task's project.
func (s *Store) SetTaskProject(id int64, projectID *int64) error {
	return s.setTaskRef(id, "project_id", projectID)
}

func (s *Store) setTaskRef(id int64, column string, ref *int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE tasks SET `+column+` = ?, updated_at = ? WHERE id = ?`,
		ref, nowISO(), id); err != nil {
		return fmt.Errorf("set %s %d: %w", column, id, err)
	}
	payload := map[string]any{"id": id, column: ref}
	if err := enqueueTx(tx, "tasks", model.OpUpsert, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteFutureInSeries soft-deletes the given task and every later member of
// its series, measured from the task's start (or due date when unscheduled).
// A task without a series falls back to a plain delete.
func (s *Store) DeleteFutureInSeries(id int64) error {
	var seriesID sql.NullInt64
	var start, due sql.NullString
	err := s.db.QueryRow(`SELECT series_id, start_ts, due_date FROM tasks WHERE id = ?`, id).
		Scan(&seriesID, &start, &due)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load task %d: %w", id, err)
	}
	if !seriesID.Valid {
		return s.DeleteTask(id)
	}

	base := start.String
	if base == "" {
		base = due.String
	}

	rows, err := s.db.Query(`SELECT id FROM tasks
		WHERE series_id = ? AND (
			(start_ts IS NOT NULL AND start_ts >= ?) OR
			(start_ts IS NULL AND due_date >= ?)
		)`, seriesID.Int64, base, base)
	if err != nil {
		return fmt.Errorf("find series tail: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var tid int64
		if err := rows.Scan(&tid); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, tid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := nowISO()
	for _, tid := range ids {
		if _, err := tx.Exec(`UPDATE tasks SET deleted = 1, updated_at = ? WHERE id = ?`,
			now, tid); err != nil {
			return fmt.Errorf("delete series task %d: %w", tid, err)
		}
		if err := enqueueTx(tx, "tasks", model.OpDelete, map[string]any{"id": tid}); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceTasks destructively replaces the tasks table with rows pulled from
// the remote. Bootstrap-only.
func (s *Store) ReplaceTasks(tasks []model.Task) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, t := range tasks {
		created := t.CreatedAt
		if created == "" {
			created = nowISO()
		}
		updated := t.UpdatedAt
		if updated == "" {
			updated = nowISO()
		}
		_, err := tx.Exec(`INSERT INTO tasks (id, title, notes, status, tag_id, project_id,
			due_date, start_ts, end_ts, has_time, parent_id, series_id, deleted, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Title, t.Notes, t.Status, t.TagID, t.ProjectID,
			nullableStr(t.DueDate), nullableStr(t.StartTS), nullableStr(t.EndTS),
			boolInt(t.HasTime), t.ParentID, t.SeriesID, boolInt(t.Deleted), created, updated)
		if err != nil {
			return fmt.Errorf("insert pulled task %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
