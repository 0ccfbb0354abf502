// Package compact merges scanned page images into a single optimized PDF
// using the external compaction tool.
package compact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tsawler/tabula/reader"
	"golang.org/x/image/tiff"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
	"github.com/lehigh-university-libraries/scanpipe/internal/scanner"
)

// ErrNoOutput is returned when the tool exits cleanly but wrote no PDF.
var ErrNoOutput = errors.New("compaction produced no PDF")

// Command holds the typed parameters of one compaction invocation.
type Command struct {
	Resolution int
	// Extra is passed through verbatim.
	Extra   []string
	Verbose bool
	Output  string
	Pages   []string
}

// Args returns the argument vector; page images are trailing positionals.
func (c Command) Args() []string {
	args := []string{"--dpi", strconv.Itoa(c.Resolution)}
	args = append(args, c.Extra...)
	if c.Verbose {
		args = append(args, "-v")
	}
	args = append(args, "-o", c.Output)
	return append(args, c.Pages...)
}

// Compactor runs the compaction tool over a scratch directory.
type Compactor struct {
	run     runner.Runner
	program string
}

// New creates a Compactor from the process settings.
func New(r runner.Runner, settings config.Settings) *Compactor {
	return &Compactor{run: r, program: settings.Programs.Compactor}
}

// Compact combines every scanned page in dir into one new PDF inside dir
// and returns its path.
func (c *Compactor) Compact(ctx context.Context, opts config.Options, dir string) (string, error) {
	pages, err := scanner.Pages(dir)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", scanner.ErrNoPages
	}
	if err := ValidatePages(pages); err != nil {
		return "", err
	}

	output, err := ReserveOutput(dir)
	if err != nil {
		return "", err
	}
	defer releaseStem(output)

	cmd := Command{
		Resolution: opts.Resolution,
		Extra:      opts.CompactArgs,
		Verbose:    opts.Verbosity > 0,
		Output:     output,
		Pages:      pages,
	}

	slog.Info("Compacting pages", "pages", len(pages), "output", output)

	if _, err := c.run.Run(ctx, runner.Cmd{Name: c.program, Args: cmd.Args(), Dir: dir}); err != nil {
		return "", fmt.Errorf("compaction failed: %w", err)
	}

	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoOutput, output)
	}

	verifyPageCount(output, len(pages))
	return output, nil
}

// ValidatePages decodes each page header and rejects unreadable images.
func ValidatePages(pages []string) error {
	for _, page := range pages {
		if err := validatePage(page); err != nil {
			return fmt.Errorf("scanned page %s is unreadable: %w", filepath.Base(page), err)
		}
	}
	return nil
}

func validatePage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	cfg, err := tiff.DecodeConfig(f)
	if err != nil {
		return err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
	slog.Debug("Validated page", "page", filepath.Base(path), "width", cfg.Width, "height", cfg.Height)
	return nil
}

// ReserveOutput claims a unique stem inside dir and returns the stem with a
// .pdf suffix. The empty stem file holds the name until the caller removes it.
func ReserveOutput(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "compact-")
	if err != nil {
		return "", fmt.Errorf("failed to reserve output name: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	output := f.Name() + ".pdf"
	if _, err := os.Stat(output); err == nil {
		return "", fmt.Errorf("output %s already exists", output)
	}
	return output, nil
}

// releaseStem removes the placeholder left by ReserveOutput.
func releaseStem(output string) {
	stem := strings.TrimSuffix(output, ".pdf")
	if err := os.Remove(stem); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("Could not remove output placeholder", "path", stem, "err", err)
	}
}

// CountPages returns the number of pages in a PDF.
func CountPages(path string) (int, error) {
	r, err := reader.Open(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	return r.PageCount()
}

func verifyPageCount(path string, expected int) {
	n, err := CountPages(path)
	if err != nil {
		slog.Warn("Could not read compacted PDF", "path", path, "err", err)
		return
	}
	if n != expected {
		slog.Warn("Compacted PDF page count differs from scan", "pdf_pages", n, "scanned_pages", expected)
		return
	}
	slog.Debug("Verified compacted PDF", "pages", n)
}
