package store

import (
	"fmt"
	"strings"
)

// migrate applies schema creation plus additive column migrations. Column
// adds are tolerant of already-existing columns so the same list can run
// against any prior schema version.
func (s *Store) migrate() error {
	migrations := []string{
		migrationCreateTasks,
		migrationCreateTags,
		migrationCreateProjects,
		migrationCreatePomodoroSessions,
		migrationCreateSyncQueue,
	}

	for i, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	// Additive-only column migrations for databases created before these
	// fields existed. Never destructive.
	columnAdds := []string{
		"ALTER TABLE tasks ADD COLUMN start_ts TEXT",
		"ALTER TABLE tasks ADD COLUMN end_ts TEXT",
		"ALTER TABLE tasks ADD COLUMN parent_id INTEGER",
		"ALTER TABLE tasks ADD COLUMN tag_id INTEGER",
		"ALTER TABLE tasks ADD COLUMN project_id INTEGER",
		"ALTER TABLE tasks ADD COLUMN series_id INTEGER",
		"ALTER TABLE projects ADD COLUMN tag_id INTEGER",
	}
	for _, stmt := range columnAdds {
		if _, err := s.db.Exec(stmt); err != nil {
			if strings.Contains(err.Error(), "duplicate column") {
				continue
			}
			return fmt.Errorf("column migration failed: %w", err)
		}
	}

	return nil
}

const migrationCreateTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    notes TEXT DEFAULT '',
    status TEXT DEFAULT 'not started',
    tag_id INTEGER,
    project_id INTEGER,
    due_date TEXT,
    start_ts TEXT,
    end_ts TEXT,
    has_time INTEGER DEFAULT 0,
    parent_id INTEGER,
    series_id INTEGER,
    deleted INTEGER DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_deleted ON tasks(deleted);
CREATE INDEX IF NOT EXISTS idx_tasks_series ON tasks(series_id);
`

const migrationCreateTags = `
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY,
    name TEXT UNIQUE NOT NULL
);
`

const migrationCreateProjects = `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    tag_id INTEGER
);
`

const migrationCreatePomodoroSessions = `
CREATE TABLE IF NOT EXISTS pomodoro_sessions (
    id INTEGER PRIMARY KEY,
    task_id INTEGER NOT NULL,
    started_at TEXT NOT NULL,
    ended_at TEXT NOT NULL,
    planned_secs INTEGER NOT NULL,
    actual_secs INTEGER NOT NULL,
    note TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_pomodoro_task ON pomodoro_sessions(task_id);
`

const migrationCreateSyncQueue = `
CREATE TABLE IF NOT EXISTS sync_queue (
    id INTEGER PRIMARY KEY,
    table_name TEXT NOT NULL,
    op TEXT NOT NULL,
    payload TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`
