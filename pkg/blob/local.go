package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore persists bucket objects on disk, one root directory per bucket.
type LocalStore struct {
	roots map[string]string
}

// NewLocalStore ensures each bucket root exists and returns a handle.
func NewLocalStore(roots map[string]string) (*LocalStore, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("at least one bucket root required")
	}
	store := &LocalStore{roots: make(map[string]string, len(roots))}
	for bucket, dir := range roots {
		if dir == "" {
			return nil, fmt.Errorf("bucket %s: empty root directory", bucket)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create bucket directory %s: %w", dir, err)
		}
		store.roots[bucket] = dir
	}
	return store, nil
}

// Get reads the object bytes at (bucket, key).
func (s *LocalStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	path, err := s.resolve(bucket, key)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put writes the object, overwriting any previous content at the key.
func (s *LocalStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	path, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare object directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Delete removes the object. A missing object is not an error.
func (s *LocalStore) Delete(ctx context.Context, bucket, key string) error {
	path, err := s.resolve(bucket, key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Exists reports whether the object is present.
func (s *LocalStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	path, err := s.resolve(bucket, key)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return true, nil
}

func (s *LocalStore) resolve(bucket, key string) (string, error) {
	root, ok := s.roots[bucket]
	if !ok {
		return "", fmt.Errorf("%s: %w", bucket, ErrUnknownBucket)
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if cleaned == "." || filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(root, cleaned), nil
}
