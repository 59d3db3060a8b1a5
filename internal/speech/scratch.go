package speech

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Scratch hands out unique file paths for request audio
type Scratch struct {
	dir string
}

// NewScratch creates dir if needed.
func NewScratch(dir string) (*Scratch, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	return &Scratch{dir: dir}, nil
}

// Path returns a fresh path such as <dir>/input-<uuid>.wav
func (s *Scratch) Path(prefix, ext string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s%s", prefix, uuid.NewString(), ext))
}

// Save writes data to a fresh path and returns it
func (s *Scratch) Save(prefix, ext string, data []byte) (string, error) {
	path := s.Path(prefix, ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	return path, nil
}

// Remove deletes the given files, ignoring ones already gone
func (s *Scratch) Remove(paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
