package storage

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Scratch is the run-scoped directory that owns scanned pages and the
// intermediate PDF.
type Scratch struct {
	Path string

	keep bool
	once sync.Once
	err  error
}

// NewScratch creates a uniquely named directory under workDir. When keep is
// set, Close leaves it in place for the user.
func NewScratch(workDir string, keep bool) (*Scratch, error) {
	dir, err := os.MkdirTemp(workDir, "scanpipe-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	slog.Debug("Created scratch directory", "path", dir, "keep", keep)
	return &Scratch{Path: dir, keep: keep}, nil
}

// Keep reports whether Close will leave the directory behind.
func (s *Scratch) Keep() bool {
	return s.keep
}

// Close removes the directory unless it is kept. It is safe to call more than once.
func (s *Scratch) Close() error {
	s.once.Do(func() {
		if s.keep {
			slog.Info("Keeping intermediate files", "path", s.Path)
			return
		}
		if err := os.RemoveAll(s.Path); err != nil {
			s.err = fmt.Errorf("failed to remove scratch directory: %w", err)
			return
		}
		slog.Debug("Removed scratch directory", "path", s.Path)
	})
	return s.err
}
