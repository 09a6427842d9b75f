package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrBlobNotFound    = errors.New("blob not found")
	ErrInvalidBlobPath = errors.New("blob path escapes the storage root")
)

// BlobInfo describes a stored blob. Path is slash separated and relative to the store root.
type BlobInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader) (int64, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	// Remove is idempotent: a missing blob is not an error.
	Remove(ctx context.Context, path string) error
	Walk(ctx context.Context, fn func(BlobInfo) error) error
}

// LocalStore keeps blobs on the local disk under root.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

func (s *LocalStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(cleaned) || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", ErrInvalidBlobPath
	}
	return filepath.Join(s.root, cleaned), nil
}

// Put writes to a temporary file first and renames it into place, so readers
// never see a partial blob.
func (s *LocalStore) Put(ctx context.Context, path string, r io.Reader) (written int64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	target, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("create temp blob: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	written, err = io.Copy(tmp, r)
	if err != nil {
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return 0, fmt.Errorf("close blob: %w", err)
	}
	if err = os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("move blob into place: %w", err)
	}
	return written, nil
}

func (s *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	target, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Remove(_ context.Context, path string) error {
	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *LocalStore) Walk(ctx context.Context, fn func(BlobInfo) error) error {
	return filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			// removed between listing and stat
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		return fn(BlobInfo{Path: filepath.ToSlash(rel), Size: info.Size(), ModTime: info.ModTime()})
	})
}
