package store

import (
	"fmt"

	"github.com/tasktide/tasktide/internal/model"
)

// GetTags returns the full tag list.
func (s *Store) GetTags() ([]model.Tag, error) {
	rows, err := s.db.Query(`SELECT id, name FROM tags ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query tags: %w", err)
	}
	defer rows.Close()

	var out []model.Tag
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddTag inserts a tag and enqueues the remote insert. Tag names are unique;
// a duplicate name surfaces the constraint error to the caller.
func (s *Store) AddTag(name string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO tags (name) VALUES (?)`, name)
	if err != nil {
		return 0, fmt.Errorf("insert tag: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert tag id: %w", err)
	}

	if err := enqueueTx(tx, "tags", model.OpInsert, map[string]any{"name": name}); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// DeleteTag hard-deletes a tag (no tombstone) and enqueues the remote delete.
func (s *Store) DeleteTag(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	if err := enqueueTx(tx, "tags", model.OpDelete, map[string]any{"id": id}); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceTags destructively replaces the tags table. Bootstrap-only.
func (s *Store) ReplaceTags(tags []model.Tag) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tags`); err != nil {
		return fmt.Errorf("clear tags: %w", err)
	}
	for _, t := range tags {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO tags (id, name) VALUES (?, ?)`,
			t.ID, t.Name); err != nil {
			return fmt.Errorf("insert pulled tag %d: %w", t.ID, err)
		}
	}
	return tx.Commit()
}
