package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"postboard/internal/logging"
	"postboard/internal/model"
	"postboard/internal/repository"
	"postboard/internal/repository/badgerdb"
	repoMocks "postboard/internal/repository/mocks"
	"postboard/internal/storage"
	storeMocks "postboard/internal/storage/mocks"
)

const imgURL = "https://post-images.s3.us-east-1.amazonaws.com/1700000000000-cat.png"

func TestPostService_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
	}{
		{"empty title", "", "World"},
		{"empty content", "Hello", ""},
		{"both empty", "", ""},
		{"whitespace title", "   ", "World"},
		{"whitespace content", "Hello", "\n\t "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockPostRepository)
			svc := NewPostService(mStore, mRepo, Options{})

			res, err := svc.Create(context.Background(), CreatePostInput{
				Title:      tt.title,
				Content:    tt.content,
				Attachment: &Attachment{Reader: strings.NewReader("x"), Filename: "a.png", Size: 1},
			})

			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), MsgTitleContentRequired)
			assert.Nil(t, res)
			mStore.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
			mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestPostService_Create(t *testing.T) {
	type mocks struct {
		store *storeMocks.MockStorage
		repo  *repoMocks.MockPostRepository
		order *[]string
	}

	tests := []struct {
		name       string
		input      func() CreatePostInput
		setupMocks func(m mocks)
		wantErr    []error
		wantLog    string
		check      func(t *testing.T, res *CreatePostResult, m mocks)
	}{
		{
			name: "no attachment",
			input: func() CreatePostInput {
				return CreatePostInput{Title: "Hello", Content: "World"}
			},
			setupMocks: func(m mocks) {
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Post) bool {
					return p.Title == "Hello" && p.Content == "World" && p.ImageURL == nil
				})).Return(&model.Post{ID: 1, Title: "Hello", Content: "World", CreatedAt: time.Now()}, nil)
			},
			check: func(t *testing.T, res *CreatePostResult, m mocks) {
				assert.Equal(t, NoImageUploaded, res.ImageURL)
				assert.Equal(t, int64(1), res.Post.ID)
				assert.Nil(t, res.Post.ImageURL)
				m.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name: "trims fields before persisting",
			input: func() CreatePostInput {
				return CreatePostInput{Title: "  Hello ", Content: "\tWorld\n"}
			},
			setupMocks: func(m mocks) {
				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Post) bool {
					return p.Title == "Hello" && p.Content == "World"
				})).Return(&model.Post{ID: 1, Title: "Hello", Content: "World"}, nil)
			},
		},
		{
			name: "attachment uploaded before insert",
			input: func() CreatePostInput {
				return CreatePostInput{
					Title:      "Cat",
					Content:    "Look",
					Attachment: &Attachment{Reader: strings.NewReader("png"), Filename: "cat.png", ContentType: "image/png", Size: 3},
				}
			},
			setupMocks: func(m mocks) {
				m.store.On("Upload", mock.Anything, mock.Anything, storage.PutObjectOptions{
					Filename:    "cat.png",
					ContentType: "image/png",
					Size:        3,
				}).Run(func(mock.Arguments) {
					*m.order = append(*m.order, "upload")
				}).Return(storage.ObjectInfo{Key: "1700000000000-cat.png", URL: imgURL}, nil).Once()

				m.repo.On("Create", mock.Anything, mock.MatchedBy(func(p *model.Post) bool {
					return p.ImageURL != nil && *p.ImageURL == imgURL
				})).Run(func(mock.Arguments) {
					*m.order = append(*m.order, "insert")
				}).Return(func() *model.Post {
					u := imgURL
					return &model.Post{ID: 7, Title: "Cat", Content: "Look", ImageURL: &u}
				}(), nil).Once()
			},
			check: func(t *testing.T, res *CreatePostResult, m mocks) {
				assert.Equal(t, []string{"upload", "insert"}, *m.order)
				assert.Equal(t, imgURL, res.ImageURL)
				require.NotNil(t, res.Post.ImageURL)
				assert.Equal(t, imgURL, *res.Post.ImageURL)
			},
		},
		{
			name: "missing content type defaults to octet-stream",
			input: func() CreatePostInput {
				return CreatePostInput{
					Title:      "Blob",
					Content:    "Raw",
					Attachment: &Attachment{Reader: strings.NewReader("raw"), Filename: "data.bin", Size: 3},
				}
			},
			setupMocks: func(m mocks) {
				m.store.On("Upload", mock.Anything, mock.Anything, mock.MatchedBy(func(o storage.PutObjectOptions) bool {
					return o.ContentType == "application/octet-stream"
				})).Return(storage.ObjectInfo{URL: imgURL}, nil)
				m.repo.On("Create", mock.Anything, mock.Anything).Return(&model.Post{ID: 1}, nil)
			},
		},
		{
			name: "upload failure never inserts",
			input: func() CreatePostInput {
				return CreatePostInput{
					Title:      "Cat",
					Content:    "Look",
					Attachment: &Attachment{Reader: strings.NewReader("png"), Filename: "cat.png", Size: 3},
				}
			},
			setupMocks: func(m mocks) {
				m.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("connection reset")).Once()
			},
			wantErr: []error{ErrUploadFailed},
			wantLog: "post_image_upload_failed",
			check: func(t *testing.T, res *CreatePostResult, m mocks) {
				m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name: "insert failure after upload orphans the object",
			input: func() CreatePostInput {
				return CreatePostInput{
					Title:      "Cat",
					Content:    "Look",
					Attachment: &Attachment{Reader: strings.NewReader("png"), Filename: "cat.png", Size: 3},
				}
			},
			setupMocks: func(m mocks) {
				m.store.On("Upload", mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "1700000000000-cat.png", URL: imgURL}, nil).Once()
				m.repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, errors.New("db fail")).Once()
			},
			wantErr: []error{ErrStorageUnavailable},
			wantLog: "orphaned_upload",
		},
		{
			name: "insert failure without attachment",
			input: func() CreatePostInput {
				return CreatePostInput{Title: "Hello", Content: "World"}
			},
			setupMocks: func(m mocks) {
				m.repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, errors.New("db fail")).Once()
			},
			wantErr: []error{ErrStorageUnavailable},
			wantLog: "post_insert_failed",
		},
		{
			name: "repository rejection maps to invalid input",
			input: func() CreatePostInput {
				return CreatePostInput{Title: "Hello", Content: "World"}
			},
			setupMocks: func(m mocks) {
				m.repo.On("Create", mock.Anything, mock.Anything).
					Return(nil, repository.ErrInvalidPost).Once()
			},
			wantErr: []error{ErrInvalidInput, repository.ErrInvalidPost},
		},
		{
			name: "oversized attachment rejected before any call",
			input: func() CreatePostInput {
				return CreatePostInput{
					Title:      "Big",
					Content:    "File",
					Attachment: &Attachment{Reader: strings.NewReader("x"), Filename: "big.png", Size: 6 << 20},
				}
			},
			setupMocks: func(m mocks) {},
			wantErr:    []error{ErrPayloadTooLarge},
			check: func(t *testing.T, res *CreatePostResult, m mocks) {
				m.store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
				m.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			},
		},
		{
			name: "attachment without reader",
			input: func() CreatePostInput {
				return CreatePostInput{Title: "Hello", Content: "World", Attachment: &Attachment{Filename: "a.png"}}
			},
			setupMocks: func(m mocks) {},
			wantErr:    []error{ErrInvalidInput, ErrReaderNil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			m := mocks{
				store: new(storeMocks.MockStorage),
				repo:  new(repoMocks.MockPostRepository),
				order: &[]string{},
			}
			svc := NewPostService(m.store, m.repo, Options{
				MaxAttachmentBytes: 5 << 20,
				Logger:             logging.New(&logs, time.UTC),
			})

			tt.setupMocks(m)

			res, err := svc.Create(context.Background(), tt.input())

			if len(tt.wantErr) > 0 {
				for _, want := range tt.wantErr {
					assert.ErrorIs(t, err, want)
				}
				assert.Nil(t, res)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
			}
			if tt.wantLog != "" {
				assert.Contains(t, logs.String(), `"event":"`+tt.wantLog+`"`)
			}
			if tt.check != nil {
				tt.check(t, res, m)
			}

			m.store.AssertExpectations(t)
			m.repo.AssertExpectations(t)
		})
	}
}

func TestPostService_CreateWithoutStorage(t *testing.T) {
	mRepo := new(repoMocks.MockPostRepository)
	svc := NewPostService(nil, mRepo, Options{})

	res, err := svc.Create(context.Background(), CreatePostInput{
		Title:      "Cat",
		Content:    "Look",
		Attachment: &Attachment{Reader: strings.NewReader("png"), Filename: "cat.png", Size: 3},
	})

	assert.ErrorIs(t, err, ErrUploadFailed)
	assert.ErrorIs(t, err, ErrStorageDisabled)
	assert.Nil(t, res)
	mRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPostService_List(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(mRepo *repoMocks.MockPostRepository)
		wantErr    error
		wantLen    int
	}{
		{
			name: "happy path",
			setupMocks: func(mRepo *repoMocks.MockPostRepository) {
				mRepo.On("List", mock.Anything).Return([]model.Post{{ID: 2}, {ID: 1}}, nil)
			},
			wantLen: 2,
		},
		{
			name: "empty",
			setupMocks: func(mRepo *repoMocks.MockPostRepository) {
				mRepo.On("List", mock.Anything).Return([]model.Post{}, nil)
			},
		},
		{
			name: "repository error",
			setupMocks: func(mRepo *repoMocks.MockPostRepository) {
				mRepo.On("List", mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: ErrStorageUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockPostRepository)
			svc := NewPostService(nil, mRepo, Options{})

			tt.setupMocks(mRepo)

			items, err := svc.List(context.Background())

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, items)
			} else {
				assert.NoError(t, err)
				assert.Len(t, items, tt.wantLen)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

// End to end over the embedded store: what Create returns is what List shows.
func TestPostService_CreateThenList(t *testing.T) {
	db, err := badgerdb.Open("")
	require.NoError(t, err)
	defer db.Close()

	mStore := new(storeMocks.MockStorage)
	svc := NewPostService(mStore, badgerdb.NewPostBadger(db), Options{MaxAttachmentBytes: 5 << 20})
	ctx := context.Background()

	first, err := svc.Create(ctx, CreatePostInput{Title: "Hello", Content: "World"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Post.ID)
	assert.Equal(t, "Hello", first.Post.Title)
	assert.Equal(t, "World", first.Post.Content)
	assert.False(t, first.Post.CreatedAt.IsZero())
	assert.Equal(t, NoImageUploaded, first.ImageURL)

	mStore.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(func(_ context.Context, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
			_, _ = io.Copy(io.Discard, r)
			key := storage.ObjectKey(time.UnixMilli(1700000000000), opt.Filename)
			return storage.ObjectInfo{Key: key, URL: "https://post-images.s3.us-east-1.amazonaws.com/" + key}
		}, nil).Once()

	second, err := svc.Create(ctx, CreatePostInput{
		Title:      "Cat",
		Content:    "Look",
		Attachment: &Attachment{Reader: strings.NewReader("png"), Filename: "cat.png", ContentType: "image/png", Size: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, imgURL, second.ImageURL)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, second.Post.ID, items[0].ID)
	assert.Equal(t, first.Post.ID, items[1].ID)
	assert.Equal(t, first.Post.Title, items[1].Title)
	assert.Equal(t, first.Post.Content, items[1].Content)
	require.NotNil(t, items[0].ImageURL)
	assert.Equal(t, imgURL, *items[0].ImageURL)
	mStore.AssertExpectations(t)
}
