// Package journal keeps a parquet log of completed captures.
package journal

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/lehigh-university-libraries/scanpipe/internal/models"
)

// Journal appends capture records to a parquet file
type Journal struct {
	path string
}

// New returns a Journal stored at path
func New(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file location
func (j *Journal) Path() string {
	return j.path
}

// Load reads every record. A missing file yields no records.
func (j *Journal) Load() ([]models.Capture, error) {
	if _, err := os.Stat(j.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	records, err := parquet.ReadFile[models.Capture](j.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	slog.Debug("Loaded journal", "path", j.path, "records", len(records))
	return records, nil
}

// Append adds c to the journal. The file is rewritten through a temporary
// file so a failed write never truncates existing records.
func (j *Journal) Append(c models.Capture) error {
	records, err := j.Load()
	if err != nil {
		return err
	}
	records = append(records, c)

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".journal-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create journal file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := parquet.Write(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := os.Rename(tmp.Name(), j.path); err != nil {
		return fmt.Errorf("failed to replace journal: %w", err)
	}

	slog.Debug("Appended capture to journal", "path", j.path, "run_id", c.RunID, "captured_at", c.Time(), "records", len(records))
	return nil
}
