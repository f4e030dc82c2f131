package common

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// ErrAborted is returned when the operator declines to continue or input is
// closed before an answer was given.
var ErrAborted = errors.New("aborted by operator")

// Prompter is the source of operator input.
type Prompter interface {
	// Pause blocks until the operator acknowledges msg.
	Pause(ctx context.Context, msg string) error
	// Input reads one line of free text.
	Input(ctx context.Context, title string) (string, error)
}

// NewPrompter returns a form-based prompter when stdin is a terminal and a
// line-based one otherwise.
func NewPrompter() Prompter {
	fd := os.Stdin.Fd()
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return FormPrompter{}
	}
	return NewLinePrompter(os.Stdin, Out)
}

// LinePrompter reads answers line by line, suitable for piped input.
type LinePrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewLinePrompter reads answers from in and writes prompts to out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{reader: bufio.NewReader(in), out: out}
}

// Pause prints msg and waits for a line.
func (p *LinePrompter) Pause(_ context.Context, msg string) error {
	if msg == "" {
		msg = "Press Enter to continue..."
	}
	fmt.Fprintln(p.out, warningStyle.Render(msg))
	if _, err := p.readLine(); err != nil {
		return err
	}
	return nil
}

// Input prints title and returns the trimmed line.
func (p *LinePrompter) Input(_ context.Context, title string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", title)
	return p.readLine()
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// FormPrompter renders prompts with huh.
type FormPrompter struct{}

// Pause shows a Continue/Abort confirm; Abort returns ErrAborted.
func (FormPrompter) Pause(ctx context.Context, msg string) error {
	proceed := true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(msg).
				Affirmative("Continue").
				Negative("Abort").
				Value(&proceed),
		),
	).RunWithContext(ctx)
	if err != nil {
		return formError(err)
	}
	if !proceed {
		return ErrAborted
	}
	return nil
}

// Input shows a single text field.
func (FormPrompter) Input(ctx context.Context, title string) (string, error) {
	var value string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&value),
		),
	).RunWithContext(ctx)
	if err != nil {
		return "", formError(err)
	}
	return strings.TrimSpace(value), nil
}

func formError(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}
