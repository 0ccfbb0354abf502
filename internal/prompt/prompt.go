// Package prompt asks the user yes/no questions on the terminal.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrDeclined is returned when the user answers no to a required confirmation.
// It ends the run successfully.
var ErrDeclined = errors.New("declined by user")

// Confirmer asks a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Prompter reads answers from in and writes questions to out.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// New creates a Prompter.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm returns true only for an explicit y or yes. Empty input and EOF mean no.
func (p *Prompter) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(p.out, "%s [y/N] ", question); err != nil {
		return false, err
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Always answers every question with the same value.
type Always bool

// Confirm implements Confirmer.
func (a Always) Confirm(string) (bool, error) {
	return bool(a), nil
}
