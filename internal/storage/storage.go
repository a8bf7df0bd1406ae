package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/fixdesk/repair-service/internal/config"
)

// BlobStore persists uploaded attachment bytes and returns where they live.
type BlobStore interface {
	// Save writes data under folder and returns the public URL and the
	// storage key the blob can later be addressed by.
	Save(ctx context.Context, folder, filename string, data []byte) (publicURL, storageKey string, err error)
}

// LocalStore keeps blobs on the local filesystem under a base directory,
// served back through a static route.
type LocalStore struct {
	baseDir string
	baseURL string
}

// NewLocalStore builds a filesystem-backed store.
func NewLocalStore(cfg config.StorageConfig) *LocalStore {
	return &LocalStore{
		baseDir: cfg.BaseDir,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Save writes the blob under a random name, keeping the original extension.
func (s *LocalStore) Save(_ context.Context, folder, filename string, data []byte) (string, string, error) {
	key := filepath.Join(sanitize(folder), uuid.NewString()+strings.ToLower(filepath.Ext(filename)))
	path := filepath.Join(s.baseDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", "", fmt.Errorf("create attachment dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write attachment: %w", err)
	}
	return s.baseURL + "/" + filepath.ToSlash(key), key, nil
}

// sanitize keeps folder names to a safe single path segment.
func sanitize(folder string) string {
	folder = filepath.Base(strings.TrimSpace(folder))
	if folder == "" || folder == "." || folder == string(filepath.Separator) {
		return "misc"
	}
	return folder
}
