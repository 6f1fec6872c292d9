package model

import "time"

// Post is a single published entry.
// This is a pure domain model with no database-specific dependencies or tags.
// ImageURL is nil when the post was created without an attachment.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
