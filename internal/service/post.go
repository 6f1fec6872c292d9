package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"postboard/internal/logging"
	"postboard/internal/model"
	"postboard/internal/repository"
	"postboard/internal/storage"
)

// Error kinds returned by PostService. Underlying causes are wrapped so both
// the kind and the cause match with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrPayloadTooLarge    = errors.New("payload too large")
	ErrUploadFailed       = errors.New("upload failed")
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrReaderNil       = errors.New("reader is nil")
	ErrStorageDisabled = errors.New("object storage is not configured")
)

const (
	// NoImageUploaded is reported as the image URL when a post has no attachment.
	NoImageUploaded = "No image uploaded"
	// MsgTitleContentRequired is the client-facing validation message.
	MsgTitleContentRequired = "Title and content are required"
)

var tracer = otel.Tracer("postboard/internal/service")

// Attachment is a binary payload supplied with a new post. The caller owns
// Reader and releases any buffer behind it once Create returns.
type Attachment struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	// Size is the exact byte count, or -1 when unknown.
	Size int64
}

// CreatePostInput is a candidate post.
type CreatePostInput struct {
	Title      string
	Content    string
	Attachment *Attachment
}

// CreatePostResult is the response of a successful Create.
type CreatePostResult struct {
	Post     *model.Post `json:"post"`
	ImageURL string      `json:"imageUrl"`
}

// PostService defines the use cases for handling posts.
type PostService interface {
	// List returns every post, newest first.
	List(ctx context.Context) ([]model.Post, error)

	// Create validates the input, relays the attachment (if any) to object
	// storage and then inserts the post. Each dependency is called at most once.
	// A successful upload followed by a failed insert leaves the object in
	// storage; it is logged, not removed.
	Create(ctx context.Context, in CreatePostInput) (*CreatePostResult, error)
}

// Options tune a PostService.
type Options struct {
	// MaxAttachmentBytes rejects larger attachments with ErrPayloadTooLarge. Zero disables the check.
	MaxAttachmentBytes int64
	Logger             *logging.Logger
}

// postService is a concrete implementation of PostService.
type postService struct {
	store    storage.Storage
	repo     repository.PostRepository
	validate *validator.Validate
	maxBytes int64
	log      *logging.Logger
}

// postFields carries the trimmed required fields through validation.
type postFields struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
}

// NewPostService constructs a new PostService. store may be nil, in which case
// every attachment fails with ErrUploadFailed.
func NewPostService(store storage.Storage, repo repository.PostRepository, opts Options) PostService {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &postService{
		store:    store,
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		maxBytes: opts.MaxAttachmentBytes,
		log:      log,
	}
}

func (s *postService) List(ctx context.Context) ([]model.Post, error) {
	ctx, span := tracer.Start(ctx, "PostService.List")
	defer span.End()

	items, err := s.repo.List(ctx)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
		fail(span, err)
		s.log.Log(map[string]any{
			"component":     "service",
			"event":         "post_list_failed",
			"status":        "error",
			"error_message": err.Error(),
		})
		return nil, err
	}
	span.SetAttributes(attribute.Int("post.count", len(items)))
	return items, nil
}

func (s *postService) Create(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	ctx, span := tracer.Start(ctx, "PostService.Create",
		trace.WithAttributes(attribute.Bool("post.has_attachment", in.Attachment != nil)))
	defer span.End()

	res, err := s.create(ctx, in)
	if err != nil {
		fail(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("post.id", res.Post.ID))
	return res, nil
}

func (s *postService) create(ctx context.Context, in CreatePostInput) (*CreatePostResult, error) {
	fields := postFields{
		Title:   strings.TrimSpace(in.Title),
		Content: strings.TrimSpace(in.Content),
	}
	if err := s.validate.Struct(fields); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, MsgTitleContentRequired)
	}

	att := in.Attachment
	if att != nil {
		if att.Reader == nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, ErrReaderNil)
		}
		if s.maxBytes > 0 && att.Size > s.maxBytes {
			return nil, fmt.Errorf("%w: attachment is %d bytes, limit is %d", ErrPayloadTooLarge, att.Size, s.maxBytes)
		}
	}

	post := &model.Post{Title: fields.Title, Content: fields.Content}
	imageURL := NoImageUploaded

	var uploaded *storage.ObjectInfo
	if att != nil {
		info, err := s.upload(ctx, att)
		if err != nil {
			s.log.Log(map[string]any{
				"component":     "service",
				"event":         "post_image_upload_failed",
				"status":        "error",
				"filename":      att.Filename,
				"error_message": err.Error(),
			})
			return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
		}
		uploaded = &info
		post.ImageURL = &info.URL
		imageURL = info.URL
	}

	stored, err := s.repo.Create(ctx, post)
	if err != nil {
		entry := map[string]any{
			"component":     "service",
			"event":         "post_insert_failed",
			"status":        "error",
			"error_message": err.Error(),
		}
		if uploaded != nil {
			entry["event"] = "orphaned_upload"
			entry["object_key"] = uploaded.Key
			entry["object_url"] = uploaded.URL
		}
		s.log.Log(entry)

		if errors.Is(err, repository.ErrInvalidPost) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return &CreatePostResult{Post: stored, ImageURL: imageURL}, nil
}

func (s *postService) upload(ctx context.Context, att *Attachment) (storage.ObjectInfo, error) {
	if s.store == nil {
		return storage.ObjectInfo{}, ErrStorageDisabled
	}
	ct := att.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	return s.store.Upload(ctx, att.Reader, storage.PutObjectOptions{
		Filename:    att.Filename,
		ContentType: ct,
		Size:        att.Size,
	})
}

func fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
