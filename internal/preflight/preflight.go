// Package preflight verifies that the external programs are installed
// before the pipeline touches the filesystem or the scanner.
package preflight

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/scanpipe/internal/config"
)

// LookPathFunc resolves a program name on PATH, like exec.LookPath.
type LookPathFunc func(string) (string, error)

// MissingError lists programs that could not be found.
type MissingError struct {
	Programs []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("required program not found on PATH: %s", strings.Join(e.Programs, ", "))
}

// Required returns the programs a run with opts will invoke.
func Required(settings config.Settings, opts config.Options) []string {
	programs := []string{settings.Programs.Scanner, settings.Programs.Tagger}
	if !opts.ScanOnly {
		programs = append(programs, settings.Programs.Compactor)
		if !opts.SkipOCR {
			programs = append(programs, settings.Programs.OCR)
		}
	}
	return programs
}

// Check resolves every name and reports all missing ones together.
func Check(lookPath LookPathFunc, names ...string) error {
	var missing []string
	for _, name := range names {
		path, err := lookPath(name)
		if err != nil {
			slog.Debug("Program lookup failed", "program", name, "err", err)
			missing = append(missing, name)
			continue
		}
		slog.Debug("Found program", "program", name, "path", path)
	}

	if len(missing) > 0 {
		return &MissingError{Programs: missing}
	}
	return nil
}
