package postgres

import (
	"context"
	"database/sql"

	"postboard/internal/model"
	"postboard/internal/repository"
)

// PostPostgres is a PostgreSQL implementation of repository.PostRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type PostPostgres struct {
	db *sql.DB
}

// NewPostPostgres creates a new PostPostgres repository.
func NewPostPostgres(db *sql.DB) *PostPostgres {
	return &PostPostgres{db: db}
}

var _ repository.PostRepository = (*PostPostgres)(nil)

// Create inserts a post row and returns it with the generated id and timestamp.
func (r *PostPostgres) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	if err := repository.CheckPost(post); err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO posts (title, content, image_url, created_at)
		VALUES ($1, $2, $3, COALESCE($4::timestamptz, now()))
		RETURNING id, title, content, image_url, created_at
	`
	var createdAt any
	if !post.CreatedAt.IsZero() {
		createdAt = post.CreatedAt
	}
	var imageURL any
	if post.ImageURL != nil {
		imageURL = *post.ImageURL
	}

	row := r.db.QueryRowContext(ctx, q, post.Title, post.Content, imageURL, createdAt)
	out, err := scanPost(row)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns all posts ordered newest first.
func (r *PostPostgres) List(ctx context.Context) ([]model.Post, error) {
	const q = `
		SELECT id, title, content, image_url, created_at
		FROM posts
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// PingContext checks database connectivity.
func (r *PostPostgres) PingContext(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (*model.Post, error) {
	var (
		p        model.Post
		imageURL sql.NullString
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Content, &imageURL, &p.CreatedAt); err != nil {
		return nil, err
	}
	if imageURL.Valid {
		u := imageURL.String
		p.ImageURL = &u
	}
	return &p, nil
}
