// Package runner executes external programs for the capture pipeline.
//
// Every invocation blocks until the child exits. A command may declare
// alternate exit codes that count as success, such as the scanner's
// "feeder empty" status.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// ErrNotFound is returned when the program disappeared from PATH after preflight.
var ErrNotFound = errors.New("executable not found")

// Cmd describes a single external invocation.
type Cmd struct {
	Name string
	Args []string
	// Dir is the working directory of the child. The parent never changes its own.
	Dir string
	// Accept lists non-zero exit codes treated as success.
	Accept []int
}

// Accepts reports whether code counts as success for c.
func (c Cmd) Accepts(code int) bool {
	return code == 0 || slices.Contains(c.Accept, code)
}

func (c Cmd) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the outcome of an accepted invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, c Cmd) (Result, error)
}

// ExitError reports a child that exited with a code the caller did not accept.
type ExitError struct {
	Cmd    Cmd
	Code   int
	Stdout []byte
	Stderr []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Cmd.Name, e.Code)
}

// Exec runs commands with os/exec.
type Exec struct {
	// Stream sends child output straight to Stdout/Stderr instead of capturing it.
	Stream bool
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Run starts c and waits for it to finish.
func (e *Exec) Run(ctx context.Context, c Cmd) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	if e.Stream {
		cmd.Stdout = writerOr(e.Stdout, os.Stdout)
		cmd.Stderr = writerOr(e.Stderr, os.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	e.logger().Debug("Running command", "program", c.Name, "args", c.Args, "dir", c.Dir)

	err := cmd.Run()
	result := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if c.Accepts(result.ExitCode) {
			e.logger().Debug("Accepted alternate exit status", "program", c.Name, "code", result.ExitCode)
			return result, nil
		}
		return result, &ExitError{Cmd: c, Code: result.ExitCode, Stdout: result.Stdout, Stderr: result.Stderr}
	}

	if errors.Is(err, exec.ErrNotFound) {
		return result, fmt.Errorf("%w: %s", ErrNotFound, c.Name)
	}

	return result, fmt.Errorf("failed to run %s: %w", c.Name, err)
}

func (e *Exec) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func writerOr(w, fallback io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return fallback
}
