// Package tagging records tags for captured documents with TMSU.
package tagging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/prompt"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
)

// Tagger runs the tagging tool in a working directory.
type Tagger struct {
	run        runner.Runner
	program    string
	noDatabase int
}

// New creates a Tagger from the process settings.
func New(r runner.Runner, settings config.Settings) *Tagger {
	return &Tagger{
		run:        r,
		program:    settings.Programs.Tagger,
		noDatabase: settings.NoDatabaseCode,
	}
}

// DatabaseExists probes dir with a read-only tag listing.
func (t *Tagger) DatabaseExists(ctx context.Context, dir string) (bool, error) {
	res, err := t.run.Run(ctx, runner.Cmd{
		Name:   t.program,
		Args:   []string{"tags"},
		Dir:    dir,
		Accept: []int{t.noDatabase},
	})
	if err != nil {
		return false, fmt.Errorf("failed to probe tag database: %w", err)
	}
	return res.ExitCode == 0, nil
}

// EnsureDatabase creates a database in dir when none exists. Without
// autoConfirm the user is asked first; declining returns prompt.ErrDeclined.
func (t *Tagger) EnsureDatabase(ctx context.Context, dir string, autoConfirm bool, c prompt.Confirmer) error {
	exists, err := t.DatabaseExists(ctx, dir)
	if err != nil {
		return err
	}
	if exists {
		slog.Debug("Tag database found", "dir", dir)
		return nil
	}

	if !autoConfirm {
		ok, err := c.Confirm(fmt.Sprintf("No tag database in %s. Create one?", dir))
		if err != nil {
			return err
		}
		if !ok {
			return prompt.ErrDeclined
		}
	}

	slog.Info("Creating tag database", "dir", dir)
	if _, err := t.run.Run(ctx, runner.Cmd{Name: t.program, Args: []string{"init"}, Dir: dir}); err != nil {
		return fmt.Errorf("failed to create tag database: %w", err)
	}
	return nil
}

// Tag applies every tag to file.
func (t *Tagger) Tag(ctx context.Context, dir, file string, tags []string) error {
	args := append([]string{"tag", file}, tags...)

	slog.Info("Tagging output", "file", file, "tags", tags)
	if _, err := t.run.Run(ctx, runner.Cmd{Name: t.program, Args: args, Dir: dir}); err != nil {
		return fmt.Errorf("tagging failed: %w", err)
	}
	return nil
}
