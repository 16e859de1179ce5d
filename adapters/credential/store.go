// Package credential persists the CMS session cookie behind an afs URL so the
// same store works against local files, memory or object storage.
package credential

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
	"go.uber.org/zap"

	"cmskit/internal/errors"
)

// DefaultURL is where the cookie lives when no location is configured:
// ~/.cmskit/cookie, or the temp dir when there is no home directory.
func DefaultURL() string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return "file://" + filepath.ToSlash(filepath.Join(dir, ".cmskit", "cookie"))
}

// Store reads and writes the cookie at a single URL. When nothing is stored
// Load falls back to the configured default cookie.
type Store struct {
	fs       afs.Service
	url      string
	fallback string
	logger   *zap.Logger
	mu       sync.Mutex
}

// NewStore creates a store at url with a fallback cookie
func NewStore(url, fallback string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(url) == "" {
		url = DefaultURL()
	}
	return &Store{
		fs:       afs.New(),
		url:      url,
		fallback: strings.TrimSpace(fallback),
		logger:   logger,
	}
}

// URL returns the storage location
func (s *Store) URL() string {
	return s.url
}

// Default returns the fallback cookie
func (s *Store) Default() string {
	return s.fallback
}

// Load returns the stored cookie, or the default when none is stored
func (s *Store) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cookie, stored, err := s.read(ctx)
	if err != nil {
		return "", err
	}
	if !stored {
		return s.fallback, nil
	}
	return cookie, nil
}

// Stored reports whether a non-blank cookie is persisted
func (s *Store) Stored(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, stored, err := s.read(ctx)
	return stored, err
}

func (s *Store) read(ctx context.Context) (string, bool, error) {
	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to check cookie at %s", s.url)
	}
	if !exists {
		return "", false, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, s.url)
	if err != nil {
		return "", false, errors.Wrapf(err, "failed to read cookie at %s", s.url)
	}
	cookie := strings.TrimSpace(string(data))
	return cookie, cookie != "", nil
}

// Save stores a trimmed cookie. Blank cookies are rejected.
func (s *Store) Save(ctx context.Context, cookie string) error {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return errors.InvalidInput("cookie cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Upload(ctx, s.url, 0o600, strings.NewReader(cookie)); err != nil {
		return errors.Wrapf(err, "failed to save cookie to %s", s.url)
	}
	s.logger.Info("cookie saved", zap.String("url", s.url), zap.Int("length", len(cookie)))
	return nil
}

// Reset removes the stored cookie so later loads return the default
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.fs.Exists(ctx, s.url)
	if err != nil {
		return errors.Wrapf(err, "failed to check cookie at %s", s.url)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, s.url); err != nil {
		return errors.Wrapf(err, "failed to remove cookie at %s", s.url)
	}
	s.logger.Info("cookie reset to default", zap.String("url", s.url))
	return nil
}
