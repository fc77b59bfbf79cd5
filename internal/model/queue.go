package model

import "encoding/json"

// Queue operations.
const (
	OpInsert = "insert"
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// QueueEntry is one pending remote mutation in the sync queue. The payload
// is self-sufficient (entity id plus changed fields), so replay never needs
// to re-read local state.
type QueueEntry struct {
	ID        int64           `json:"id"`
	Table     string          `json:"table"`
	Op        string          `json:"op"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}
