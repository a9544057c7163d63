// Package media stores images uploaded with posts and serves them back by name.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("media file not found")
	ErrUnsupportedType = errors.New("unsupported image type; upload a JPEG, PNG or GIF")
	ErrTooLarge        = errors.New("image is too large")
)

// URLPrefix is where the router mounts media files
const URLPrefix = "/media/"

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// Store persists media under generated names
type Store interface {
	Save(ctx context.Context, name, contentType string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, string, error)
}

// URL is the public path of a stored file
func URL(name string) string {
	return URLPrefix + name
}

// ValidName rejects anything that could escape the store's namespace
func ValidName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}

func contentTypeOf(name string) string {
	for ct, ext := range allowedImageTypes {
		if strings.HasSuffix(name, ext) {
			return ct
		}
	}
	return "application/octet-stream"
}

// SaveUpload checks size and sniffed content type of an uploaded file, stores it
// under a fresh name and returns its public URL
func SaveUpload(ctx context.Context, store Store, fh *multipart.FileHeader, maxSize int64) (string, error) {
	if maxSize > 0 && fh.Size > maxSize {
		return "", fmt.Errorf("%w: %d bytes, limit is %d", ErrTooLarge, fh.Size, maxSize)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.New().String() + ext
	if err := store.Save(ctx, name, contentType, io.MultiReader(bytes.NewReader(head), f)); err != nil {
		return "", fmt.Errorf("store %s: %w", name, err)
	}
	return URL(name), nil
}
