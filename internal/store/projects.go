package store

import (
	"database/sql"
	"fmt"

	"github.com/tasktide/tasktide/internal/model"
)

// GetProjects returns the full project list.
func (s *Store) GetProjects() ([]model.Project, error) {
	rows, err := s.db.Query(`SELECT id, name, tag_id FROM projects ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		var tagID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &tagID); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if tagID.Valid {
			p.TagID = &tagID.Int64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AddProject inserts a project, or returns the existing id when a project
// with the same name already exists. Only a real insert is queued.
func (s *Store) AddProject(name string, tagID *int64) (int64, error) {
	var existing int64
	err := s.db.QueryRow(`SELECT id FROM projects WHERE name = ?`, name).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("lookup project: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO projects (name, tag_id) VALUES (?, ?)`, name, tagID)
	if err != nil {
		return 0, fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert project id: %w", err)
	}

	payload := map[string]any{"name": name, "tag_id": tagID}
	if err := enqueueTx(tx, "projects", model.OpInsert, payload); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// DeleteProject hard-deletes a project and enqueues the remote delete.
func (s *Store) DeleteProject(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project %d: %w", id, err)
	}
	if err := enqueueTx(tx, "projects", model.OpDelete, map[string]any{"id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceProjects destructively replaces the projects table. Bootstrap-only.
func (s *Store) ReplaceProjects(projects []model.Project) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM projects`); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	for _, p := range projects {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO projects (id, name, tag_id) VALUES (?, ?, ?)`,
			p.ID, p.Name, p.TagID); err != nil {
			return fmt.Errorf("insert pulled project %d: %w", p.ID, err)
		}
	}
	return tx.Commit()
}
