// Package commontest provides in-memory fakes for the common capabilities.
package commontest

import (
	"context"
	"errors"
	"strings"

	"github.com/nixdots/nixdots-install/internal/common"
)

// Runner records every command and fails those whose name is in FailOn.
type Runner struct {
	Calls   [][]string
	Outputs map[string]string
	FailOn  map[string]bool
}

func NewRunner() *Runner {
	return &Runner{Outputs: map[string]string{}, FailOn: map[string]bool{}}
}

func (r *Runner) Run(_ context.Context, name string, args ...string) error {
	r.Calls = append(r.Calls, append([]string{name}, args...))
	if r.FailOn[name] {
		return &common.CommandError{Name: name, Args: args, Err: errors.New("exit status 1")}
	}
	return nil
}

// Output returns Outputs keyed by the full command line.
func (r *Runner) Output(_ context.Context, name string, args ...string) (string, error) {
	r.Calls = append(r.Calls, append([]string{name}, args...))
	if r.FailOn[name] {
		return "", &common.CommandError{Name: name, Args: args, Err: errors.New("exit status 1")}
	}
	return r.Outputs[strings.Join(append([]string{name}, args...), " ")], nil
}

// Lines returns the recorded commands joined with spaces.
func (r *Runner) Lines() []string {
	lines := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		lines = append(lines, strings.Join(c, " "))
	}
	return lines
}

// Names returns the program name of every recorded command.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.Calls))
	for _, c := range r.Calls {
		names = append(names, c[0])
	}
	return names
}

// Host is a configurable common.Host.
type Host struct {
	Euid    int
	Devices map[string]bool
	Files   map[string]bool
}

func NewRootHost(devices ...string) *Host {
	h := &Host{Devices: map[string]bool{}, Files: map[string]bool{}}
	for _, d := range devices {
		h.Devices[d] = true
	}
	return h
}

func (h *Host) Geteuid() int                   { return h.Euid }
func (h *Host) IsBlockDevice(path string) bool { return h.Devices[path] }
func (h *Host) FileExists(path string) bool    { return h.Files[path] || h.Devices[path] }

// Prompter answers Input calls from Answers in order.
type Prompter struct {
	Answers  []string
	PauseErr error
	Pauses   int
	Inputs   int
}

func (p *Prompter) Pause(context.Context, string) error {
	p.Pauses++
	return p.PauseErr
}

func (p *Prompter) Input(context.Context, string) (string, error) {
	if p.Inputs >= len(p.Answers) {
		return "", common.ErrAborted
	}
	a := p.Answers[p.Inputs]
	p.Inputs++
	return a, nil
}

// Prompts returns the total number of prompts shown.
func (p *Prompter) Prompts() int {
	return p.Pauses + p.Inputs
}
