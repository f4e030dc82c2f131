package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/nixdots/nixdots-install/internal/logging"
)

// Runner executes external commands. Run streams output to the terminal,
// Output captures stdout and is only used for read-only queries.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) (string, error)
}

// CommandError is returned when an external command exits non-zero or cannot
// be started.
type CommandError struct {
	Name string
	Args []string
	Err  error
}

func (e *CommandError) Error() string {
	if len(e.Args) == 0 {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Name, strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands on the local machine.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner wired to the process's standard streams.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes a command and streams output to stdout/stderr
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Name: name, Args: args, Err: err}
	}
	return nil
}

// Output executes a command and returns its trimmed stdout
func (r *ExecRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	logging.LogCommand(name, args)
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = r.Stderr
	out, err := cmd.Output()
	if err != nil {
		return "", &CommandError{Name: name, Args: args, Err: err}
	}
	return strings.TrimSpace(string(out)), nil
}

// DryRunner prints mutating commands instead of running them. Output is
// delegated to Query so that read-only lookups still see the real system.
type DryRunner struct {
	Out   io.Writer
	Query Runner
}

// NewDryRunner returns a DryRunner printing to stdout.
func NewDryRunner() *DryRunner {
	return &DryRunner{Out: os.Stdout, Query: NewExecRunner()}
}

// Run prints the command line.
func (r *DryRunner) Run(_ context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)
	fmt.Fprintln(r.Out, Dim("[dry-run] "+name+" "+strings.Join(args, " ")))
	return nil
}

// Output runs the query for real.
func (r *DryRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	return r.Query.Output(ctx, name, args...)
}
