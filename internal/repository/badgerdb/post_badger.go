// Package badgerdb stores posts in an embedded BadgerDB instance.
// It backs local and single-node deployments where PostgreSQL is not available.
package badgerdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"postboard/internal/model"
	"postboard/internal/repository"
)

const (
	postKeyPrefix = "post:"
	postSeqKey    = "seq:post"
)

// maxConflictRetries bounds how often Create retries a transaction that lost
// the race for the id sequence to a concurrent writer.
const maxConflictRetries = 20

// ErrClosed is returned when the underlying database has been closed.
var ErrClosed = errors.New("badgerdb: database closed")

// Open opens a BadgerDB at path, or an in-memory instance when path is empty.
func Open(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// PostBadger implements repository.PostRepository on top of BadgerDB.
type PostBadger struct {
	db  *badger.DB
	now func() time.Time
}

// NewPostBadger creates a new PostBadger repository.
func NewPostBadger(db *badger.DB) *PostBadger {
	return &PostBadger{db: db, now: time.Now}
}

var _ repository.PostRepository = (*PostBadger)(nil)

// storedPost is the on-disk value layout.
type storedPost struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Create assigns the next id and stores the post in a single transaction.
func (r *PostBadger) Create(ctx context.Context, post *model.Post) (*model.Post, error) {
	if err := repository.CheckPost(post); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sp := storedPost{
		Title:     post.Title,
		Content:   post.Content,
		ImageURL:  post.ImageURL,
		CreatedAt: post.CreatedAt,
	}
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = r.now().UTC()
	}

	var err error
	for attempt := 0; attempt <= maxConflictRetries; attempt++ {
		err = r.db.Update(func(txn *badger.Txn) error {
			id, err := nextID(txn)
			if err != nil {
				return err
			}
			sp.ID = id

			data, err := json.Marshal(sp)
			if err != nil {
				return fmt.Errorf("marshal post: %w", err)
			}
			return txn.Set(postKey(id), data)
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := toModel(sp)
	return &out, nil
}

// List loads every post and orders them by created_at then id, both descending.
func (r *PostBadger) List(ctx context.Context) ([]model.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := make([]model.Post, 0)
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(postKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sp storedPost
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sp)
			})
			if err != nil {
				return fmt.Errorf("unmarshal post: %w", err)
			}
			items = append(items, toModel(sp))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

// PingContext fails once the database has been closed.
func (r *PostBadger) PingContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db.IsClosed() {
		return ErrClosed
	}
	return nil
}

// nextID increments and returns the post sequence inside txn.
func nextID(txn *badger.Txn) (int64, error) {
	var id uint64
	item, err := txn.Get([]byte(postSeqKey))
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		err = item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt post sequence")
			}
			id = binary.BigEndian.Uint64(val)
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	id++

	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	if err := txn.Set([]byte(postSeqKey), buf); err != nil {
		return 0, err
	}
	return int64(id), nil
}

// postKey keeps keys sortable by id.
func postKey(id int64) []byte {
	key := make([]byte, len(postKeyPrefix)+8)
	copy(key, postKeyPrefix)
	binary.BigEndian.PutUint64(key[len(postKeyPrefix):], uint64(id))
	return key
}

func toModel(sp storedPost) model.Post {
	return model.Post{
		ID:        sp.ID,
		Title:     sp.Title,
		Content:   sp.Content,
		ImageURL:  sp.ImageURL,
		CreatedAt: sp.CreatedAt,
	}
}
