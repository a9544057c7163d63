package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps files in a directory on the local filesystem
type DiskStore struct {
	root string
}

// NewDiskStore creates root if needed
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(_ context.Context, name, _ string, r io.Reader) error {
	if !ValidName(name) {
		return ErrNotFound
	}
	dst, err := os.Create(filepath.Join(s.root, name))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return err
	}
	return dst.Close()
}

func (s *DiskStore) Open(_ context.Context, name string) (io.ReadCloser, string, error) {
	if !ValidName(name) {
		return nil, "", ErrNotFound
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	return f, contentTypeOf(name), nil
}
