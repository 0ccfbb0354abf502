// Package pipeline runs one document capture from scanner to tagged PDF.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/scanpipe/internal/compact"
	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/journal"
	"github.com/lehigh-university-libraries/scanpipe/internal/models"
	"github.com/lehigh-university-libraries/scanpipe/internal/ocr"
	"github.com/lehigh-university-libraries/scanpipe/internal/preflight"
	"github.com/lehigh-university-libraries/scanpipe/internal/prompt"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
	"github.com/lehigh-university-libraries/scanpipe/internal/scanner"
	"github.com/lehigh-university-libraries/scanpipe/internal/storage"
	"github.com/lehigh-university-libraries/scanpipe/internal/tagging"
)

// Pipeline wires the stages together. Journal may be nil.
type Pipeline struct {
	Settings  config.Settings
	Runner    runner.Runner
	LookPath  preflight.LookPathFunc
	Confirmer prompt.Confirmer
	Journal   *journal.Journal
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run executes every stage for opts. A user declining a confirmation
// returns prompt.ErrDeclined.
func (p *Pipeline) Run(ctx context.Context, opts config.Options) error {
	runID := uuid.NewString()
	logger := slog.Default().With("run_id", runID)
	logger.Info("Starting capture", "output", opts.Output, "mode", opts.Mode, "scan_only", opts.ScanOnly)

	if err := preflight.Check(p.LookPath, preflight.Required(p.Settings, opts)...); err != nil {
		return err
	}

	if !opts.ScanOnly {
		if err := p.confirmOverwrite(opts); err != nil {
			return err
		}
	}

	scratch, err := storage.NewScratch(opts.WorkDir, opts.KeepIntermediate)
	if err != nil {
		return err
	}
	defer func() {
		if err := scratch.Close(); err != nil {
			logger.Warn("Could not clean up scratch directory", "path", scratch.Path, "err", err)
		}
	}()

	pages, err := scanner.NewDriver(p.Runner, p.Settings).Scan(ctx, opts, scratch.Path)
	if err != nil {
		return err
	}

	if opts.ScanOnly {
		logger.Info("Scan only, stopping", "pages", len(pages), "path", scratch.Path, "kept", scratch.Keep())
		return nil
	}

	intermediate, err := compact.New(p.Runner, p.Settings).Compact(ctx, opts, scratch.Path)
	if err != nil {
		return err
	}

	if err := ocr.NewService(p.Runner, p.Settings).Apply(ctx, opts, intermediate); err != nil {
		return err
	}
	logger.Info("Wrote output", "path", opts.Output, "pages", len(pages))

	if len(opts.Tags) > 0 {
		tagger := tagging.New(p.Runner, p.Settings)
		if err := tagger.EnsureDatabase(ctx, opts.WorkDir, opts.Overwrite, p.Confirmer); err != nil {
			if errors.Is(err, prompt.ErrDeclined) {
				logger.Info("Tagging skipped, output kept", "path", opts.Output)
			}
			return err
		}
		if err := tagger.Tag(ctx, opts.WorkDir, opts.Output, opts.Tags); err != nil {
			return err
		}
	}

	p.record(logger, runID, opts, len(pages))
	logger.Info("Capture complete", "output", opts.Output)
	return nil
}

// confirmOverwrite asks before replacing an existing output unless --overwrite is set.
func (p *Pipeline) confirmOverwrite(opts config.Options) error {
	info, err := os.Stat(opts.Output)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to check output: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("output %s is a directory", opts.Output)
	}
	if opts.Overwrite {
		return nil
	}

	ok, err := p.Confirmer.Confirm(fmt.Sprintf("%s already exists. Overwrite?", opts.Output))
	if err != nil {
		return err
	}
	if !ok {
		return prompt.ErrDeclined
	}
	return nil
}

// record appends the capture to the journal. Failures are logged, not fatal.
func (p *Pipeline) record(logger *slog.Logger, runID string, opts config.Options, pages int) {
	if p.Journal == nil {
		return
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	err := p.Journal.Append(models.Capture{
		RunID:      runID,
		CapturedAt: now().UnixMilli(),
		Output:     opts.Output,
		Pages:      pages,
		Mode:       string(opts.Mode),
		Color:      string(opts.Color),
		PaperSize:  string(opts.PaperSize),
		Resolution: opts.Resolution,
		Preset:     string(opts.Preset),
		OCR:        !opts.SkipOCR,
		Tags:       opts.Tags,
	})
	if err != nil {
		logger.Warn("Could not write capture journal", "path", p.Journal.Path(), "err", err)
	}
}
