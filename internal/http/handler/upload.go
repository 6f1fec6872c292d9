package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"

	"postboard/internal/service"
)

// imageField is the multipart field carrying the optional post image.
const imageField = "image"

// UploadOptions control how attachments are accepted.
type UploadOptions struct {
	// MaxBytes is the attachment ceiling; larger files get 413 before any processing.
	MaxBytes int64
	// BufferDir, when set, spools each attachment to a temp file in this
	// directory instead of reading it from the in-memory form.
	BufferDir string
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

// imageFile returns the uploaded image header, or nil when none was sent.
func imageFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	files := form.File[imageField]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

// openAttachment opens fh for relaying. The returned release func must be
// called on every path once the attachment is no longer needed.
func openAttachment(fh *multipart.FileHeader, bufferDir string) (*service.Attachment, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open form file: %w", err)
	}

	att := &service.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
	}

	if bufferDir == "" {
		att.Reader = src
		return att, func() { _ = src.Close() }, nil
	}
	defer src.Close()

	tmp, err := os.CreateTemp(bufferDir, "upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create upload buffer: %w", err)
	}
	release := func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, src)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("buffer upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, nil, fmt.Errorf("rewind upload buffer: %w", err)
	}

	att.Reader = tmp
	att.Size = n
	return att, release, nil
}
