// Package blobstore stores uploaded patient profile images on disk and maps
// them to public /uploads URLs.  Validation (content type, size) happens here
// so handlers only deal with multipart file headers.
package blobstore

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("stored file not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
)

// MaxImageSize is the maximum allowed profile image size in bytes (5 MB).
const MaxImageSize = 5 * 1024 * 1024

// PublicPrefix is the URL prefix the stored files are served under.
const PublicPrefix = "/uploads"

// allowedImageTypes maps accepted image MIME types to their file extension.
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Store saves uploaded images and removes them when their owner is deleted.
type Store interface {
	Save(file *multipart.FileHeader) (string, error)
	Remove(publicPath string) error
}

// DiskStore is a Store backed by a directory on the local filesystem.
type DiskStore struct {
	dir string
}

// NewDiskStore creates the upload directory if needed and returns a store
// writing into it.
func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the directory files are written to, for static file serving.
func (s *DiskStore) Dir() string { return s.dir }

// Save validates the upload and writes it under a fresh UUID filename.
// It returns the public URL path for the stored file.
func (s *DiskStore) Save(file *multipart.FileHeader) (string, error) {
	if file.Size > MaxImageSize {
		return "", ErrFileTooLarge
	}

	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidContentType, contentType)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	// Enforce the size limit on the actual stream too; Size comes from the
	// multipart header and is client-controlled.
	n, err := io.Copy(dst, io.LimitReader(src, MaxImageSize+1))
	if err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("write file: %w", err)
	}
	if n > MaxImageSize {
		os.Remove(dst.Name())
		return "", ErrFileTooLarge
	}

	return path.Join(PublicPrefix, name), nil
}

// Remove deletes the file behind a public URL path. Paths outside the public
// prefix are rejected so callers cannot unlink arbitrary files.
func (s *DiskStore) Remove(publicPath string) error {
	name := strings.TrimPrefix(publicPath, PublicPrefix+"/")
	if name == publicPath || name == "" || strings.Contains(name, "/") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid stored file path %q", publicPath)
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
