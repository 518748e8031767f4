package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"repstack-backend/internal/shared/storage/object"
)

// Store implements VideoStore using the local filesystem. Used in dev and
// tests; production runs the S3 store.
type Store struct {
	baseDir string
	baseURL string
}

// New creates a new local video store rooted at baseDir. baseURL is prepended
// to storage keys to form fetchable URLs.
func New(baseDir, baseURL string) object.VideoStore {
	return &Store{baseDir: baseDir, baseURL: strings.TrimRight(baseURL, "/")}
}

// SignedURL returns a static URL under the configured base URL.
func (s *Store) SignedURL(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean, err := cleanKey(storageKey)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + filepath.ToSlash(clean), nil
}

// Delete removes a stored video. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	clean, err := cleanKey(storageKey)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(s.baseDir, clean)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete video %s: %w", storageKey, err)
	}
	return nil
}

func cleanKey(storageKey string) (string, error) {
	clean := filepath.Clean(storageKey)
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid storage key")
	}
	return clean, nil
}
