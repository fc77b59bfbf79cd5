package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tasktide/tasktide/internal/model"
)

// enqueueTx appends one pending remote mutation inside the caller's
// transaction, so a local write and its queue entry commit together.
func enqueueTx(tx *sql.Tx, table, op string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal queue payload: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO sync_queue (table_name, op, payload, created_at)
		VALUES (?, ?, ?, ?)`, table, op, string(raw), nowISO()); err != nil {
		return fmt.Errorf("enqueue %s %s: %w", op, table, err)
	}
	return nil
}

// Enqueue appends a pending remote mutation outside any entity write. Used
// to requeue entries whose replay failed.
func (s *Store) Enqueue(table, op string, payload json.RawMessage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := enqueueTx(tx, table, op, payload); err != nil {
		return err
	}
	return tx.Commit()
}

// DequeueAll atomically reads and clears the whole sync queue, returning the
// entries in insertion order. There is no partial dequeue.
func (s *Store) DequeueAll() ([]model.QueueEntry, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id, table_name, op, payload, created_at
		FROM sync_queue ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}

	var out []model.QueueEntry
	for rows.Next() {
		var e model.QueueEntry
		var payload string
		if err := rows.Scan(&e.ID, &e.Table, &e.Op, &payload, &e.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan queue entry: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(`DELETE FROM sync_queue`); err != nil {
		return nil, fmt.Errorf("clear queue: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

// QueueLen returns the number of pending entries.
func (s *Store) QueueLen() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return n, nil
}
