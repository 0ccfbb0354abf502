// Package scanner drives the SANE scanimage frontend in batch mode.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/facette/natsort"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
)

// PagePattern is the batch filename; %d is replaced with the page number from 1.
const PagePattern = "scan%d.tif"

const pageGlob = "scan*.tif"

// ErrNoPages is returned when the scanner exits cleanly without producing a page.
var ErrNoPages = errors.New("scanner produced no pages")

// Geometry is a page size in millimetres.
type Geometry struct {
	Width  int
	Height int
}

var geometries = map[config.PaperSize]Geometry{
	config.PaperA4: {Width: 210, Height: 297},
	config.PaperA5: {Width: 148, Height: 210},
	config.PaperA6: {Width: 105, Height: 148},
}

// PaperGeometry maps a paper size to its dimensions, defaulting to A4.
func PaperGeometry(p config.PaperSize) Geometry {
	if g, ok := geometries[p]; ok {
		return g
	}
	return geometries[config.PaperA4]
}

// Source maps the scan mode to the ADF source selector.
func Source(m config.Mode) string {
	if m == config.ModeDuplex {
		return "ADF Duplex"
	}
	return "ADF Front"
}

// Command holds the typed parameters of one scanimage invocation.
type Command struct {
	Device     string
	Resolution int
	Mode       config.Mode
	Color      config.Color
	Paper      config.PaperSize
}

// Args returns the argument vector for scanimage. The batch pattern is
// relative, so scanimage must run inside the directory that receives the pages.
func (c Command) Args() []string {
	g := PaperGeometry(c.Paper)
	width, height := strconv.Itoa(g.Width), strconv.Itoa(g.Height)

	return []string{
		"-d", c.Device,
		"--resolution", strconv.Itoa(c.Resolution),
		"--source", Source(c.Mode),
		"--mode", cases.Title(language.Und).String(string(c.Color)),
		"-x", width,
		"-y", height,
		"--page-width", width,
		"--page-height", height,
		"--format=tiff",
		"--batch=" + PagePattern,
		"--batch-start=1",
	}
}

// Driver runs the scanner.
type Driver struct {
	run         runner.Runner
	program     string
	device      string
	feederEmpty int
}

// NewDriver creates a Driver from the process settings.
func NewDriver(r runner.Runner, settings config.Settings) *Driver {
	return &Driver{
		run:         r,
		program:     settings.Programs.Scanner,
		device:      settings.Device,
		feederEmpty: settings.FeederEmptyCode,
	}
}

// Scan feeds every page in the tray into dir and returns the pages in order.
func (d *Driver) Scan(ctx context.Context, opts config.Options, dir string) ([]string, error) {
	cmd := Command{
		Device:     d.device,
		Resolution: opts.Resolution,
		Mode:       opts.Mode,
		Color:      opts.Color,
		Paper:      opts.PaperSize,
	}

	slog.Info("Scanning", "device", d.device, "source", Source(opts.Mode), "color", opts.Color, "resolution", opts.Resolution)

	res, err := d.run.Run(ctx, runner.Cmd{
		Name:   d.program,
		Args:   cmd.Args(),
		Dir:    dir,
		Accept: []int{d.feederEmpty},
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	if res.ExitCode == d.feederEmpty {
		slog.Debug("Document feeder empty", "code", res.ExitCode)
	}

	pages, err := Pages(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	slog.Info("Scan complete", "pages", len(pages))
	return pages, nil
}

// Pages lists the scanned images in dir in natural order, so scan2 sorts before scan10.
// Only file names are matched; dir itself may contain pattern characters.
func Pages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list scanned pages: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(pageGlob, e.Name()); ok {
			names = append(names, e.Name())
		}
	}
	natsort.Sort(names)

	pages := make([]string, len(names))
	for i, name := range names {
		pages[i] = filepath.Join(dir, name)
	}
	return pages, nil
}
