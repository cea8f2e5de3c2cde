// Package media implements the media-acquisition and upload pipeline: a
// process-wide scratch directory with a deterministic filename policy, a
// fetch-or-copy step with content-type validation, a retrying cleanup loop,
// and a batch uploader that tolerates per-item failure.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Errors.
var (
	// ErrUnsupportedType marks an extension or content-type outside the
	// supported set. Aborts the single media item.
	ErrUnsupportedType = errors.New("unsupported media type")

	// ErrEmptyFile marks a zero-byte download.
	ErrEmptyFile = errors.New("downloaded file is empty")

	// ErrBadStatus marks a non-success HTTP status on download.
	ErrBadStatus = errors.New("unexpected HTTP status")

	// ErrNoUploads marks a batch where every item failed.
	ErrNoUploads = errors.New("no uploads succeeded")
)

// cleanupInterval is the cadence of the self-rescheduling deletion loop.
const cleanupInterval = time.Minute

// NormalizeExtension maps an extension or image content-type to its
// canonical form. Inputs "JPG", ".JPEG" and "image/jpeg" all resolve to
// ".jpg". Anything outside {jpg, png, gif} is ErrUnsupportedType.
func NormalizeExtension(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimPrefix(s, ".")
	// Content types may carry parameters ("image/png; charset=binary").
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, "image/")

	switch s {
	case "jpg", "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	case "gif":
		return ".gif", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, input)
	}
}

// Store owns the process-wide scratch directory, its filename counter, and
// the deletion queue. All mutation runs under one lock so concurrent
// pipeline calls never collide on filenames or lose queue entries.
type Store struct {
	mu sync.Mutex

	preferred string
	dir       string // memoized once resolved; reset when the directory is reclaimed

	counter int64

	pending       map[string]struct{}
	timerArmed    bool
	retryInterval time.Duration

	httpClient *http.Client
	logger     *slog.Logger
}

// NewStore creates a store whose scratch directory will be derived from the
// preferred name on first use.
func NewStore(preferredDir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if preferredDir == "" {
		preferredDir = "streambot-media"
	}
	return &Store{
		preferred:     preferredDir,
		pending:       make(map[string]struct{}),
		retryInterval: cleanupInterval,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger.With("component", "media-store"),
	}
}

// Dir resolves the scratch directory, memoized for the life of the process.
// The preferred name is used when absent or empty; otherwise a numeric
// suffix is probed until an unused or empty name is found.
func (s *Store) Dir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirLocked()
}

func (s *Store) dirLocked() (string, error) {
	if s.dir != "" {
		return s.dir, nil
	}

	candidate := s.preferred
	for suffix := 1; ; suffix++ {
		entries, err := os.ReadDir(candidate)
		if os.IsNotExist(err) {
			if err := os.MkdirAll(candidate, 0o700); err != nil {
				return "", fmt.Errorf("creating scratch directory %s: %w", candidate, err)
			}
			break
		}
		if err != nil {
			return "", fmt.Errorf("probing scratch directory %s: %w", candidate, err)
		}
		if len(entries) == 0 {
			break // empty directory is safe to reuse
		}
		candidate = fmt.Sprintf("%s-%d", s.preferred, suffix)
	}

	s.dir = candidate
	s.logger.Debug("scratch directory resolved", "dir", candidate)
	return candidate, nil
}

// NextFilename allocates the next sequential filename with the given
// extension. The counter is process-wide and never reused, even after
// deletions.
func (s *Store) NextFilename(ext string) (string, error) {
	normalized, err := NormalizeExtension(ext)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("%d%s", s.counter, normalized), nil
}

// Path returns the full path of a scratch filename.
func (s *Store) Path(name string) (string, error) {
	dir, err := s.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Read returns the bytes of a scratch file.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// Fetch brings a remote URL or local path into the scratch directory and
// returns the allocated filename (never the directory). Downloads validate
// the HTTP status and content-type; zero-byte downloads are rejected.
func (s *Store) Fetch(ctx context.Context, src string) (string, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return s.download(ctx, src)
	}
	return s.copyLocal(src)
}

func (s *Store) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request for %s: %w", url, err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d for %s", ErrBadStatus, resp.StatusCode, url)
	}

	name, err := s.NextFilename(resp.Header.Get("Content-Type"))
	if err != nil {
		return "", err
	}
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	n, err := io.Copy(f, resp.Body)
	closeErr := f.Close()
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if closeErr != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", path, closeErr)
	}
	if n == 0 {
		os.Remove(path)
		return "", fmt.Errorf("%w: %s", ErrEmptyFile, url)
	}

	s.logger.Debug("media downloaded", "url", url, "file", name, "bytes", n)
	return name, nil
}

func (s *Store) copyLocal(src string) (string, error) {
	name, err := s.NextFilename(filepath.Ext(src))
	if err != nil {
		return "", err
	}
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("closing %s: %w", path, err)
	}

	s.logger.Debug("media copied", "src", src, "file", name)
	return name, nil
}

// Edit invokes fn once per filename that actually exists in the scratch
// directory, passing the full path. A nil fn is a no-op. Per-file edit
// errors are returned to the caller.
func (s *Store) Edit(names []string, fn func(path string) error) error {
	if fn == nil {
		return nil
	}
	for _, name := range names {
		path, err := s.Path(name)
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := fn(path); err != nil {
			return fmt.Errorf("editing %s: %w", name, err)
		}
	}
	return nil
}
