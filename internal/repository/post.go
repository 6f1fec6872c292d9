package repository

import (
	"context"
	"errors"
	"strings"

	"postboard/internal/model"
)

// ErrInvalidPost is returned by Create when title or content is blank.
var ErrInvalidPost = errors.New("post title and content are required")

// PostRepository defines data access for posts.
// No business logic here, strictly persistence operations.
type PostRepository interface {
	// Create inserts a new post. The store assigns ID, and CreatedAt when the
	// caller leaves it zero. Returns the stored post.
	Create(ctx context.Context, post *model.Post) (*model.Post, error)

	// List returns every post, newest first. Posts sharing a timestamp are
	// ordered by descending ID.
	List(ctx context.Context) ([]model.Post, error)

	// PingContext reports whether the backing store is reachable.
	PingContext(ctx context.Context) error
}

// CheckPost rejects posts with a blank title or content.
func CheckPost(p *model.Post) error {
	if p == nil || strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Content) == "" {
		return ErrInvalidPost
	}
	return nil
}
