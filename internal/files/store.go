// Package files stores uploaded invoice documents on local disk under
// date-partitioned directories.
package files

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store writes and reads documents below a single root directory. Stored
// paths are relative to the root so the root can move between environments.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore creates the root directory if needed.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("files: create root: %w", err)
	}
	return &Store{root: root, now: time.Now}, nil
}

// Save writes the document under <root>/YYYY/MM/ with a random name that
// keeps the original extension, and returns the relative path.
func (s *Store) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	dir := s.now().Format("2006/01")
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("files: create dir: %w", err)
	}
	rel := filepath.Join(dir, uuid.NewString()+ext)
	f, err := os.Create(filepath.Join(s.root, rel))
	if err != nil {
		return "", fmt.Errorf("files: create: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("files: write: %w", err)
	}
	return rel, nil
}

// Open returns the stored document and its content type, derived from the
// extension.
func (s *Store) Open(ctx context.Context, rel string) (io.ReadCloser, string, error) {
	clean := filepath.Clean(rel)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return nil, "", fmt.Errorf("files: invalid path %q", rel)
	}
	f, err := os.Open(filepath.Join(s.root, clean))
	if err != nil {
		return nil, "", err
	}
	contentType := mime.TypeByExtension(filepath.Ext(clean))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return f, contentType, nil
}
