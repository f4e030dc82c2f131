// Package installer bootstraps NixOS onto the mounted target: it clones the
// dotfiles repository, records the detected hardware, runs nixos-install and
// reboots.
package installer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/config"
	"github.com/nixdots/nixdots-install/internal/logging"
)

// ArchivedLogPath is where the install log ends up on the target, relative to
// its root.
const ArchivedLogPath = "/var/log/nixdots-install.log.xz"

// Installer runs the install steps against cfg.MountPoint.
type Installer struct {
	Runner common.Runner
	Config config.Config

	// LogPath is archived onto the target when set.
	LogPath string
	// DryRun skips the mount checks and the log archive.
	DryRun bool
}

// Install requires the target filesystems to be mounted.
func (i *Installer) Install(ctx context.Context) error {
	logger := logging.GetLogger("installer")
	done := logging.LogOperationStart(logger, "install")
	defer done()

	mnt := i.Config.MountPoint
	if !i.DryRun {
		for _, p := range []string{mnt, filepath.Join(mnt, "boot")} {
			if !common.IsMounted(ctx, i.Runner, p) {
				return fmt.Errorf("%s is not mounted", p)
			}
		}
	}

	common.Info("Cloning configuration repository...")
	if err := i.Clone(ctx); err != nil {
		return fmt.Errorf("clone configuration: %w", err)
	}

	common.Info("Generating hardware configuration...")
	if err := i.HardwareConfig(ctx); err != nil {
		return fmt.Errorf("generate hardware config: %w", err)
	}

	common.Info("Installing NixOS...")
	common.Warning("This takes a while (downloading packages from cache.nixos.org). Do NOT interrupt.")
	if err := i.Runner.Run(ctx, "nixos-install", "--root", mnt, "--no-root-passwd"); err != nil {
		return fmt.Errorf("installation failed: %w", err)
	}

	if i.LogPath != "" && !i.DryRun {
		dst := filepath.Join(mnt, ArchivedLogPath)
		if err := ArchiveFile(i.LogPath, dst); err != nil {
			common.Warning(fmt.Sprintf("Failed to archive install log: %v", err))
		} else {
			logger.Info().Str("path", dst).Msg("Install log archived")
		}
	}

	common.Success("NixOS installed")
	return nil
}

// Clone fetches the dotfiles repository into the target.
func (i *Installer) Clone(ctx context.Context) error {
	dest := i.Config.TargetRepoDir()
	if err := i.Runner.Run(ctx, "mkdir", "-p", filepath.Dir(dest)); err != nil {
		return err
	}
	args := []string{"clone", "--depth", "1"}
	if i.Config.Repo.Branch != "" {
		args = append(args, "--branch", i.Config.Repo.Branch)
	}
	args = append(args, i.Config.Repo.URL, dest)
	return i.Runner.Run(ctx, "git", args...)
}

// HardwareConfig runs nixos-generate-config and copies the result into the
// repository so the flake can import it. Flakes only see files git tracks, so
// the copy is registered with the index.
func (i *Installer) HardwareConfig(ctx context.Context) error {
	mnt := i.Config.MountPoint
	if err := i.Runner.Run(ctx, "nixos-generate-config", "--root", mnt); err != nil {
		return err
	}
	repo := i.Config.TargetRepoDir()
	src := filepath.Join(mnt, "etc/nixos/hardware-configuration.nix")
	dst := filepath.Join(repo, i.Config.Repo.HardwarePath)
	if err := i.Runner.Run(ctx, "install", "-D", "-m", "0644", src, dst); err != nil {
		return err
	}
	return i.Runner.Run(ctx, "git", "-C", repo, "add", "--intent-to-add", "--force", i.Config.Repo.HardwarePath)
}

// Reboot counts down for delay, then reboots. Cancelling ctx during the
// countdown aborts the reboot.
func (i *Installer) Reboot(ctx context.Context, delay time.Duration) error {
	if delay > 0 {
		fmt.Fprintf(common.Out, "Rebooting in %s... (Ctrl+C to cancel)\n", delay)
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return i.Runner.Run(ctx, "reboot")
}

// PrintNextSteps tells the operator how to finish after the reboot.
func PrintNextSteps(cfg config.Config) {
	fmt.Fprintln(common.Out)
	common.Header("Installation complete!")
	fmt.Fprintln(common.Out, "After reboot, log in as root on the console and run:")
	fmt.Fprintln(common.Out)
	fmt.Fprintln(common.Out, "   "+common.Highlight("nixdots-install --rebuild"))
	fmt.Fprintln(common.Out)
	fmt.Fprintf(common.Out, "This applies the %q system profile and the %q home profile from %s.\n",
		cfg.Profiles.System, cfg.Profiles.Home, cfg.Repo.Dir)
	fmt.Fprintln(common.Out, "No passwords were set; define them in your configuration.")
	fmt.Fprintln(common.Out)
}
