// Package provision runs the installer as a pipeline of stages. Each stage
// returns an error and the first error ends the run; nothing is rolled back.
package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/config"
	"github.com/nixdots/nixdots-install/internal/disk"
	"github.com/nixdots/nixdots-install/internal/installer"
	"github.com/nixdots/nixdots-install/internal/layout"
	"github.com/nixdots/nixdots-install/internal/logging"
	"github.com/nixdots/nixdots-install/internal/rebuild"
)

// Options are the process-level switches.
type Options struct {
	Rebuild     bool
	DryRun      bool
	NoReboot    bool
	RebootDelay time.Duration
	LogPath     string
}

// Stage is one named step of the pipeline.
type Stage struct {
	Name string
	Run  func(ctx context.Context) error
}

// Workflow wires the stages to their capabilities.
type Workflow struct {
	Runner   common.Runner
	Host     common.Host
	Prompter common.Prompter
	Config   config.Config
	Options  Options
}

// Run executes the rebuild path when Options.Rebuild is set and the install
// path otherwise.
func (w *Workflow) Run(ctx context.Context) error {
	if err := disk.CheckPrivilege(w.Host); err != nil {
		return err
	}
	if w.Options.Rebuild {
		return w.rebuild(ctx)
	}
	return w.install(ctx)
}

// RunStages executes stages in order and stops at the first failure.
func RunStages(ctx context.Context, stages []Stage) error {
	logger := logging.GetLogger("provision")
	for i, s := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		common.Step(i+1, len(stages), s.Name)
		done := logging.LogOperationStart(logger, s.Name)
		err := s.Run(ctx)
		done()
		if err != nil {
			logger.Error().Err(err).Str("stage", s.Name).Msg("Stage failed")
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

func (w *Workflow) install(ctx context.Context) error {
	common.Header("NixOS Installation")
	common.Banner("WARNING: this installer ERASES a whole disk",
		"The disk you choose is overwritten, repartitioned and formatted.",
		"There is no undo once partitioning starts.")
	if err := w.Prompter.Pause(ctx, "Press Enter to continue"); err != nil {
		return err
	}

	w.showDisks(ctx)
	target, err := disk.Select(ctx, w.Host, w.Prompter)
	if err != nil {
		return err
	}
	logger := logging.GetLogger("provision")
	logger.Info().
		Str("disk", target.Path).
		Str("scheme", target.Scheme.String()).
		Msg("Disk confirmed")

	lay := layout.New(w.Runner, w.Host, w.Config)
	lay.DryRun = w.Options.DryRun
	inst := &installer.Installer{
		Runner:  w.Runner,
		Config:  w.Config,
		LogPath: w.Options.LogPath,
		DryRun:  w.Options.DryRun,
	}

	stages := []Stage{
		{Name: "Partition " + target.Path, Run: func(ctx context.Context) error { return lay.Apply(ctx, target) }},
		{Name: "Install NixOS", Run: inst.Install},
	}
	if err := RunStages(ctx, stages); err != nil {
		return err
	}

	installer.PrintNextSteps(w.Config)
	if w.Options.NoReboot {
		common.Info("Skipping reboot")
		return nil
	}
	return inst.Reboot(ctx, w.Options.RebootDelay)
}

func (w *Workflow) showDisks(ctx context.Context) {
	disks, err := disk.List(ctx, w.Runner)
	if err != nil {
		logger := logging.GetLogger("provision")
		logger.Warn().Err(err).Msg("Could not list block devices")
		return
	}
	disk.PrintList(disks)
}

func (w *Workflow) rebuild(ctx context.Context) error {
	common.Header("Applying dotfiles configuration")
	rb := &rebuild.Rebuilder{Runner: w.Runner, Host: w.Host, Config: w.Config}
	if err := RunStages(ctx, []Stage{{Name: "Rebuild", Run: rb.Run}}); err != nil {
		return err
	}
	fmt.Fprintln(common.Out)
	common.Success("System configured. Log out and back in to pick up the home profile.")
	return nil
}
