// Package runnertest provides a recording runner.Runner for tests.
package runnertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lehigh-university-libraries/scanpipe/internal/runner"
)

// Handler simulates a program. A non-zero ExitCode in the returned result is
// checked against the command's accepted codes the same way runner.Exec does.
type Handler func(c runner.Cmd) (runner.Result, error)

// Fake records every command it is asked to run.
type Fake struct {
	mu       sync.Mutex
	calls    []runner.Cmd
	handlers map[string]Handler
}

// New returns an empty Fake. Programs without a handler exit 0.
func New() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// Handle registers h for the program name.
func (f *Fake) Handle(name string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
}

// Run implements runner.Runner.
func (f *Fake) Run(_ context.Context, c runner.Cmd) (runner.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	h := f.handlers[c.Name]
	f.mu.Unlock()

	if h == nil {
		return runner.Result{}, nil
	}

	res, err := h(c)
	if err != nil {
		return res, err
	}
	if !c.Accepts(res.ExitCode) {
		return res, &runner.ExitError{Cmd: c, Code: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
	}
	return res, nil
}

// Calls returns the recorded commands in order.
func (f *Fake) Calls() []runner.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Cmd(nil), f.calls...)
}

// CallsTo returns the recorded commands for one program.
func (f *Fake) CallsTo(name string) []runner.Cmd {
	var out []runner.Cmd
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Exit returns a handler that always exits with code.
func Exit(code int) Handler {
	return func(runner.Cmd) (runner.Result, error) {
		return runner.Result{ExitCode: code}, nil
	}
}

// LookPath resolves every name except those listed as missing.
func LookPath(missing ...string) func(string) (string, error) {
	return func(name string) (string, error) {
		for _, m := range missing {
			if m == name {
				return "", fmt.Errorf("exec: %q: executable file not found in $PATH", name)
			}
		}
		return "/usr/bin/" + name, nil
	}
}
