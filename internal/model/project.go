package model

// Tag is a top-level label used to filter the board and calendar.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project groups tasks under an optional tag.
type Project struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	TagID *int64 `json:"tag_id,omitempty"`
}
