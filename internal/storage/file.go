// filepath: internal/storage/file.go
// Package storage persists uploaded files and hands out stored-file
// references. References are ULIDs, so file names never depend on
// client-supplied input.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sqlgrid/internal/grid"

	"github.com/oklog/ulid/v2"
)

// Store writes uploads below a single root directory.
type Store struct {
	Root string
}

// NewStore ensures the upload root exists.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("could not create upload root: %w", err)
	}
	return &Store{Root: root}, nil
}

// Save streams the upload to disk and returns its reference. The original
// extension is kept (sanitized) so web servers can serve the file with a
// sensible content type.
func (s *Store) Save(data io.Reader, originalName string) (ref string, size int64, err error) {
	ref = ulid.Make().String()
	if ext := safeExt(originalName); ext != "" {
		ref += ext
	}

	f, err := os.Create(filepath.Join(s.Root, ref))
	if err != nil {
		return "", 0, fmt.Errorf("could not create file: %w", err)
	}
	defer f.Close()

	size, err = io.Copy(f, data)
	if err != nil {
		return "", 0, fmt.Errorf("could not write file: %w", err)
	}
	return ref, size, nil
}

// Path resolves a reference back to its location on disk. References that
// are not plain names are rejected to keep lookups inside the root.
func (s *Store) Path(ref string) (string, error) {
	base := ref
	if ext := filepath.Ext(ref); ext != "" {
		base = ref[:len(ref)-len(ext)]
	}
	if !grid.SafeNameRegex.MatchString(base) {
		return "", fmt.Errorf("invalid file reference: %s", ref)
	}
	return filepath.Join(s.Root, ref), nil
}

// safeExt keeps short alphanumeric extensions and drops everything else.
func safeExt(name string) string {
	ext := filepath.Ext(name)
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
