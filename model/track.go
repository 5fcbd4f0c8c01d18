package model

import (
	"database/sql"
	"time"
)

// Track represents one published artifact in the sound archive.
// Tracks are created by admins and immutable afterwards except for
// admin deletion.
type Track struct {
	ID          int64          `json:"id"`
	Title       string         `json:"title"`
	Artist      string         `json:"artist"`
	AudioPath   string         `json:"audioUrl"`            // object path under the media bucket
	CoverPath   sql.NullString `json:"imageUrl,omitempty"`  // optional cover art object path
	Description sql.NullString `json:"description,omitempty"`
	Tag         sql.NullString `json:"tag,omitempty"`
	Duration    float32        `json:"duration"` // seconds, 0 when unknown
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}
