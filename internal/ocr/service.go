package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tsawler/tabula/reader"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
)

// Service adds a text layer to the compacted PDF
type Service struct {
	run      runner.Runner
	program  string
	language string
}

// NewService creates a new OCR service
func NewService(r runner.Runner, settings config.Settings) *Service {
	return &Service{
		run:      r,
		program:  settings.Programs.OCR,
		language: settings.OCRLanguage,
	}
}

// Command builds the OCR tool arguments for input and output.
func (s *Service) Command(input, output string) []string {
	return []string{"-l", s.language, input, output}
}

// Apply writes the final PDF to opts.Output, either through OCR or, when
// OCR is skipped, as a byte-for-byte copy of the intermediate PDF.
func (s *Service) Apply(ctx context.Context, opts config.Options, intermediate string) error {
	if opts.SkipOCR {
		slog.Info("Skipping OCR", "output", opts.Output)
		if err := copyFile(intermediate, opts.Output); err != nil {
			return fmt.Errorf("failed to copy PDF to output: %w", err)
		}
		return nil
	}

	slog.Info("Running OCR", "language", s.language, "output", opts.Output)

	_, err := s.run.Run(ctx, runner.Cmd{
		Name: s.program,
		Args: s.Command(intermediate, opts.Output),
		Dir:  opts.WorkDir,
	})
	if err != nil {
		return fmt.Errorf("OCR failed: %w", err)
	}

	s.reportText(opts.Output)
	return nil
}

// reportText logs how much text the OCR layer contains
func (s *Service) reportText(path string) {
	n, err := TextLength(path)
	if err != nil {
		slog.Debug("Could not read OCR text layer", "path", path, "err", err)
		return
	}
	if n == 0 {
		slog.Warn("OCR produced no text", "path", path)
		return
	}
	slog.Debug("Extracted OCR text", "length", n)
}

// TextLength returns the number of non-blank characters extracted from every page of a PDF.
func TextLength(path string) (int, error) {
	r, err := reader.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		return 0, err
	}

	total := 0
	for i := 0; i < count; i++ {
		page, err := r.GetPage(i)
		if err != nil {
			return total, fmt.Errorf("failed to read page %d: %w", i+1, err)
		}
		text, err := r.ExtractText(page)
		if err != nil {
			return total, fmt.Errorf("failed to extract text from page %d: %w", i+1, err)
		}
		total += len(strings.Join(strings.Fields(text), ""))
	}
	return total, nil
}

// copyFile duplicates src at dst through a temporary file in dst's directory.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".scanpipe-copy-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
