package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
)

// ObjectStorage stores receipt files by object path
type ObjectStorage interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error
	Open(ctx context.Context, objectPath string) (io.ReadCloser, error)
	Delete(ctx context.Context, objectPath string) error
}

// BucketStorage keeps objects in a Cloud Storage bucket under a fixed prefix
type BucketStorage struct {
	bucket *gcs.BucketHandle
	prefix string
}

func NewBucketStorage(bucket *gcs.BucketHandle, prefix string) *BucketStorage {
	return &BucketStorage{bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *BucketStorage) object(objectPath string) *gcs.ObjectHandle {
	if s.prefix == "" {
		return s.bucket.Object(objectPath)
	}
	return s.bucket.Object(path.Join(s.prefix, objectPath))
}

func (s *BucketStorage) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) error {
	w := s.object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return nil
}

func (s *BucketStorage) Open(ctx context.Context, objectPath string) (io.ReadCloser, error) {
	r, err := s.object(objectPath).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	return r, err
}

func (s *BucketStorage) Delete(ctx context.Context, objectPath string) error {
	err := s.object(objectPath).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

// LocalStorage keeps objects as files below a root directory
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) resolve(objectPath string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(objectPath))
	full := filepath.Join(s.root, clean)
	if !strings.HasPrefix(full, filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: invalid object path", ErrValidation)
	}
	return full, nil
}

func (s *LocalStorage) Put(_ context.Context, objectPath string, r io.Reader, _ string) error {
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}

	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("write %s: %w", objectPath, err)
	}
	return f.Close()
}

func (s *LocalStorage) Open(_ context.Context, objectPath string) (io.ReadCloser, error) {
	full, err := s.resolve(objectPath)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStorage) Delete(_ context.Context, objectPath string) error {
	full, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
