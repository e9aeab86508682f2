package blob

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"DocumentClassifier/internal/ports"
)

// LocalStore keeps blobs on disk and hands out file:// URLs.
type LocalStore struct {
	root string
}

var _ ports.BlobStore = (*LocalStore)(nil)

// NewLocalStore creates the store rooted at dir.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "document-blobs")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve blob dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Root is the directory objects are written under.
func (s *LocalStore) Root() string { return s.root }

// Upload writes data under key.
func (s *LocalStore) Upload(ctx context.Context, key string, data []byte, contentType string) (ports.StoredObject, error) {
	if err := ctx.Err(); err != nil {
		return ports.StoredObject{}, err
	}

	clean := filepath.Clean("/" + filepath.FromSlash(key))
	if strings.Trim(clean, string(filepath.Separator)) == "" {
		return ports.StoredObject{}, fmt.Errorf("object key is required")
	}

	fullPath := filepath.Join(s.root, clean)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return ports.StoredObject{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return ports.StoredObject{}, fmt.Errorf("write object %s: %w", key, err)
	}

	u := url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return ports.StoredObject{URL: u.String(), ContentType: contentType}, nil
}
