package xfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Scratch is a request-scoped temporary directory. Everything written
// through it is removed by Close.
type Scratch struct {
	dir    string
	mu     sync.Mutex
	closed bool
}

// NewScratch creates a new scratch directory under base. An empty base uses
// the system temporary directory.
func NewScratch(base, prefix string) (*Scratch, error) {
	if base != "" {
		if err := os.MkdirAll(ExpandTilde(base), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create scratch base %s: %w", base, err)
		}
		base = ExpandTilde(base)
	}

	dir, err := os.MkdirTemp(base, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	return &Scratch{dir: dir}, nil
}

// Dir returns the scratch directory.
func (s *Scratch) Dir() string {
	return s.dir
}

// Path joins name onto the scratch directory.
func (s *Scratch) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteFile writes data to name inside the scratch directory and returns its path.
func (s *Scratch) WriteFile(name string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", fmt.Errorf("scratch %s already released", s.dir)
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write scratch file %s: %w", name, err)
	}

	return path, nil
}

// Close removes the scratch directory and everything in it. It is safe to
// call more than once.
func (s *Scratch) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := os.RemoveAll(s.dir); err != nil {
		slog.Warn("Failed to remove scratch directory", "path", s.dir, "error", err)
		return err
	}

	return nil
}
