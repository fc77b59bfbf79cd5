package server

// migrate creates the entity tables. The SQL is deliberately portable
// between Postgres and SQLite: TEXT timestamps, INTEGER booleans, explicit
// ids assigned by the handlers.
func (s *Server) migrate() error {
	migrations := []string{
		migrationTags,
		migrationProjects,
		migrationTasks,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

const migrationTags = `
CREATE TABLE IF NOT EXISTS tags (
    id BIGINT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL
);
`

const migrationProjects = `
CREATE TABLE IF NOT EXISTS projects (
    id BIGINT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    tag_id BIGINT
);
`

const migrationTasks = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGINT PRIMARY KEY,
    title TEXT NOT NULL DEFAULT '',
    notes TEXT DEFAULT '',
    status TEXT DEFAULT 'not started',
    tag_id BIGINT,
    project_id BIGINT,
    has_time INTEGER DEFAULT 0,
    due_date TEXT,
    start_ts TEXT,
    end_ts TEXT,
    parent_id BIGINT,
    series_id BIGINT,
    created_at TEXT,
    updated_at TEXT
);
`
