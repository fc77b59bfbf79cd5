package remote

import "strings"

// TaskRow is a partial task payload for merge-duplicates upserts. Only the
// fields that are set travel over the wire, so a status-only change never
// clobbers title or notes on the server.
type TaskRow struct {
	ID        *int64  `json:"id,omitempty"`
	Title     *string `json:"title,omitempty"`
	Notes     *string `json:"notes,omitempty"`
	Status    *string `json:"status,omitempty"`
	TagID     *int64  `json:"tag_id,omitempty"`
	ProjectID *int64  `json:"project_id,omitempty"`
	HasTime   *bool   `json:"has_time,omitempty"`
	DueDate   *string `json:"due_date,omitempty"`
	StartTS   *string `json:"start_ts,omitempty"`
	EndTS     *string `json:"end_ts,omitempty"`
	ParentID  *int64  `json:"parent_id,omitempty"`
	SeriesID  *int64  `json:"series_id,omitempty"`
}

// normalize adjusts timestamp fields for the wire: naive timestamps get a
// UTC marker and due dates are truncated to their date portion.
func (r *TaskRow) normalize() {
	if r.DueDate != nil {
		d := dateOnly(*r.DueDate)
		r.DueDate = &d
	}
	if r.StartTS != nil {
		ts := fixTimestamp(*r.StartTS)
		r.StartTS = &ts
	}
	if r.EndTS != nil {
		ts := fixTimestamp(*r.EndTS)
		r.EndTS = &ts
	}
}

// fixTimestamp appends a "Z" to naive ISO timestamps so the backend's
// timestamptz columns accept them. Timestamps that already carry a zone are
// left alone.
func fixTimestamp(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsAny(s, "Z+") {
		return s
	}
	if len(s) >= 19 && s[10] == 'T' {
		return s + "Z"
	}
	return s
}

// dateOnly truncates an ISO timestamp to its date portion. Pure due dates
// carry no time of day.
func dateOnly(s string) string {
	if i := strings.IndexByte(s, 'T'); i > 0 {
		return s[:i]
	}
	return s
}
