// Package storage saves uploaded product images on local disk. Files are
// renamed to a uuid so user-supplied names never reach the filesystem, and
// the returned path is relative to the media directory served at /media.
package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// allowed image extensions, lower-cased
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// LocalStore writes files under Dir and hands back media-relative paths.
type LocalStore struct {
	Dir string
}

// NewLocalStore ensures the product subdirectory exists and returns the
// store.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "products"), 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &LocalStore{Dir: dir}, nil
}

// SaveProduct stores one uploaded image and returns its media-relative path
// (e.g. "products/3f2a....jpg"). Unsupported extensions are rejected before
// anything touches disk.
func (s *LocalStore) SaveProduct(fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExts[ext] {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	rel := path.Join("products", uuid.NewString()+ext)
	dst, err := os.Create(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return rel, nil
}

// Remove deletes a previously stored file. A missing file is not an error;
// the row pointing at it is already gone or being replaced.
func (s *LocalStore) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
