package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	// ErrTooLarge indicates the file exceeds the configured upload limit.
	ErrTooLarge = errors.New("file too large")
	// ErrUnsupportedFormat indicates the file extension or content is not accepted.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrUploadFailed indicates the object store rejected or failed the upload.
	ErrUploadFailed = errors.New("upload failed")
)

// DefaultMaxUploadBytes is the upload ceiling used when none is configured.
const DefaultMaxUploadBytes int64 = 50 * 1024 * 1024

const (
	sniffLen   = 3072
	maxSlugLen = 48
)

// allowedFormats maps accepted extensions to the MIME types their content may sniff as.
var allowedFormats = map[string][]string{
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".png":  {"image/png"},
	".pdf":  {"application/pdf"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	".pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
	".txt":  {"text/plain"},
}

// ObjectStore persists named blobs and returns a public location.
type ObjectStore interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, location string) error
}

// File is an incoming upload.
type File struct {
	Name string
	// Size is the declared size; a negative value means unknown.
	Size int64
	Body io.Reader
}

// Uploader validates uploads against the accepted formats and size limit
// before handing them to the object store.
type Uploader struct {
	store    ObjectStore
	maxBytes int64
	prefix   string
	now      func() time.Time
}

// NewUploader wraps store with upload constraints.
func NewUploader(store ObjectStore, maxBytes int64, prefix string) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploader{
		store:    store,
		maxBytes: maxBytes,
		prefix:   strings.Trim(prefix, "/"),
		now:      time.Now,
	}
}

// MaxBytes reports the configured upload ceiling.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// AllowedExtensions lists the accepted file extensions without the leading dot.
func AllowedExtensions() []string {
	return []string{"jpg", "jpeg", "png", "pdf", "docx", "pptx", "txt"}
}

// Upload validates file and stores it under a key namespaced by owner.
func (u *Uploader) Upload(ctx context.Context, ownerID string, file File) (string, error) {
	if u == nil || u.store == nil {
		return "", fmt.Errorf("%w: object store unavailable", ErrUploadFailed)
	}
	if file.Body == nil {
		return "", fmt.Errorf("%w: empty file", ErrUploadFailed)
	}

	ext := strings.ToLower(filepath.Ext(file.Name))
	families, ok := allowedFormats[ext]
	if !ok {
		return "", fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}

	if file.Size > u.maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, file.Size, u.maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: read file: %v", ErrUploadFailed, err)
	}
	head = head[:n]
	if n == 0 {
		return "", fmt.Errorf("%w: empty file", ErrUnsupportedFormat)
	}

	detected := mimetype.Detect(head)
	if !matchesFamily(detected, families) {
		return "", fmt.Errorf("%w: content %s does not match %s", ErrUnsupportedFormat, detected.String(), ext)
	}

	body := &limitedReader{r: io.MultiReader(bytes.NewReader(head), file.Body), remaining: u.maxBytes}

	location, err := u.store.Save(ctx, u.objectKey(ownerID, file.Name, ext), detected.String(), body)
	if body.exceeded {
		return "", fmt.Errorf("%w: exceeds %d bytes", ErrTooLarge, u.maxBytes)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return location, nil
}

// Remove deletes a previously uploaded file. An empty location is a no-op.
func (u *Uploader) Remove(ctx context.Context, location string) error {
	if location == "" {
		return nil
	}
	if u == nil || u.store == nil {
		return errors.New("object store unavailable")
	}
	return u.store.Remove(ctx, location)
}

// objectKey builds prefix/owner/YYYY/MM/<uuid>-<slug>.<ext>. The slug keeps
// keys readable; the uuid keeps them unique.
func (u *Uploader) objectKey(ownerID, fileName, ext string) string {
	d := u.now().UTC()
	base := uuid.NewString()
	if s := slug.Make(strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))); s != "" {
		if len(s) > maxSlugLen {
			s = strings.TrimRight(s[:maxSlugLen], "-")
		}
		base += "-" + s
	}
	name := fmt.Sprintf("%d/%02d/%s%s", d.Year(), d.Month(), base, ext)
	return path.Join(u.prefix, ownerID, name)
}

func matchesFamily(detected *mimetype.MIME, families []string) bool {
	for m := detected; m != nil; m = m.Parent() {
		for _, family := range families {
			if m.Is(family) {
				return true
			}
		}
	}
	return false
}

// limitedReader fails once more than remaining bytes have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
	exceeded  bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.exceeded {
		return 0, ErrTooLarge
	}
	// Allow one byte past the limit so an exact-size file is not rejected.
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		l.exceeded = true
		return 0, ErrTooLarge
	}
	return n, err
}
