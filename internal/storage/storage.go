// Package storage relays post attachments to an S3-compatible object store.
// Objects are streamed straight from the caller's reader; nothing is kept here.
package storage

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

// PutObjectOptions describe an attachment being uploaded.
// Size should be the exact number of bytes if known; if unknown, set to -1 and
// the backend will buffer/chunk as supported.
type PutObjectOptions struct {
	Filename    string
	ContentType string
	Size        int64
	Metadata    map[string]string
}

// ObjectInfo describes a stored object and where it can be fetched from.
type ObjectInfo struct {
	Key         string
	URL         string
	Size        int64
	ETag        string
	ContentType string
}

// Storage is the blob store used by the post write path.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Upload stores the content under a key derived from the upload time and
	// opt.Filename, and returns the object's public URL in ObjectInfo.URL.
	Upload(ctx context.Context, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
}

// ObjectKey builds "{unix-millis}-{filename}". Two uploads of the same file name
// within the same millisecond collide; that window is accepted.
func ObjectKey(now time.Time, filename string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + cleanFilename(filename)
}

// cleanFilename keeps only the last path element so client-supplied names
// cannot introduce prefixes into the key.
func cleanFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	base := path.Base(name)
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	return base
}
