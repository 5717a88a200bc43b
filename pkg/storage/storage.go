// Package storage holds uploaded audio assets behind a small FileStore
// interface, with a local-disk backend for single-node deployments and an
// S3 backend for shared object storage (AWS, MinIO, R2).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidPath is returned for empty, absolute, or root-escaping paths.
var ErrInvalidPath = errors.New("storage: invalid path")

// FileStore stores whole files by path.
//
// Paths are forward-slash separated and relative to the store root.
// Implementations must be safe for concurrent use.
type FileStore interface {
	// Open opens the named file for reading. The caller must close it.
	// A missing file yields an error wrapping os.ErrNotExist.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Put stores data under path, replacing any existing file.
	Put(ctx context.Context, path string, data []byte, contentType string) error

	// Delete removes the named file. Missing files are not an error.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the named file exists.
	Exists(ctx context.Context, path string) (bool, error)
}

// ReadFile reads a whole file from s.
func ReadFile(ctx context.Context, s FileStore, path string) ([]byte, error) {
	rc, err := s.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// cleanPath normalizes p and rejects paths that leave the store root.
func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	c := path.Clean(p)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return c, nil
}
