package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBlobStore implements BlobStore using the local filesystem.
type LocalBlobStore struct {
	rootPath string
}

// NewLocalBlobStore creates a new LocalBlobStore with the given root directory.
func NewLocalBlobStore(rootPath string) *LocalBlobStore {
	return &LocalBlobStore{rootPath: rootPath}
}

// resolve maps a key to a path under rootPath. Keys may not escape the root.
func (s *LocalBlobStore) resolve(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != key {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.rootPath, filepath.FromSlash(clean)), nil
}

// Put writes content through a temp file and a rename so readers never see a
// partial blob.
func (s *LocalBlobStore) Put(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := func() {
		tempFile.Close()
		os.Remove(tempName)
	}

	if _, err := io.Copy(tempFile, reader); err != nil {
		cleanup()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempName, fullPath); err != nil {
		os.Remove(tempName)
		return fmt.Errorf("failed to rename temp file to %s: %w", fullPath, err)
	}
	return nil
}

// Get retrieves content from the blob store.
func (s *LocalBlobStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return file, nil
}

// List returns the keys under prefix. Temp files of in-flight writes are
// skipped.
func (s *LocalBlobStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	root := filepath.Join(s.rootPath, filepath.FromSlash(prefix))

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list blobs with prefix %s: %w", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// Delete removes a blob.
func (s *LocalBlobStore) Delete(ctx context.Context, key string) error {
	fullPath, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}
