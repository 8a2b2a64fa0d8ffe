// Package prompt provides plain line-oriented user prompts for
// terminals where the form UI cannot run.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	// ErrEmptyInput is returned when the user provides empty input and
	// no default is set.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidInput is returned when the user provides invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// Prompter defines the interface for interactive prompts.
type Prompter interface {
	// Input prompts for a single line of text input.
	Input(prompt string, defaultValue string) (string, error)

	// Confirm prompts for a yes/no confirmation.
	Confirm(prompt string, defaultValue bool) (bool, error)
}

// StdPrompter implements Prompter over stdin/stdout.
type StdPrompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewStdPrompter creates a StdPrompter on the process streams.
func NewStdPrompter() *StdPrompter {
	return &StdPrompter{
		reader: bufio.NewReader(os.Stdin),
		writer: os.Stdout,
	}
}

// NewPrompter creates a Prompter with custom streams (for testing).
func NewPrompter(reader io.Reader, writer io.Writer) *StdPrompter {
	return &StdPrompter{
		reader: bufio.NewReader(reader),
		writer: writer,
	}
}

// Input prompts for a single line of text input. Empty input takes the
// default when one is set.
func (p *StdPrompter) Input(prompt string, defaultValue string) (string, error) {
	label := prompt + ": "
	if defaultValue != "" {
		label = fmt.Sprintf("%s [%s]: ", prompt, defaultValue)
	}

	if _, err := io.WriteString(p.writer, label); err != nil {
		return "", errors.Wrap(err, "writing prompt")
	}

	input, err := p.reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "reading input")
	}

	input = strings.TrimSpace(input)

	if input == "" {
		if defaultValue == "" {
			return "", ErrEmptyInput
		}

		return defaultValue, nil
	}

	return input, nil
}

// Confirm prompts for a yes/no confirmation. Empty input takes the
// default.
func (p *StdPrompter) Confirm(prompt string, defaultValue bool) (bool, error) {
	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}

	if _, err := fmt.Fprintf(p.writer, "%s [%s]: ", prompt, defaultStr); err != nil {
		return false, errors.Wrap(err, "writing prompt")
	}

	input, err := p.reader.ReadString('\n')
	if err != nil {
		return false, errors.Wrap(err, "reading input")
	}

	switch strings.TrimSpace(strings.ToLower(input)) {
	case "":
		return defaultValue, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, errors.Wrapf(ErrInvalidInput, "expected y/n, got %q", strings.TrimSpace(input))
	}
}
