// Package rebuild applies the declarative configuration after the first boot:
// the NixOS system profile, then the user's home-manager profile.
package rebuild

import (
	"context"
	"fmt"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/config"
	"github.com/nixdots/nixdots-install/internal/logging"
)

// Rebuilder switches the running system to the configured profiles.
type Rebuilder struct {
	Runner common.Runner
	Host   common.Host
	Config config.Config
}

// FlakeRef returns "<repo>#<output>".
func FlakeRef(repoDir, output string) string {
	return repoDir + "#" + output
}

// Run applies the system profile and then the home profile. Profile names are
// used as given.
func (r *Rebuilder) Run(ctx context.Context) error {
	logger := logging.GetLogger("rebuild")
	done := logging.LogOperationStart(logger, "rebuild")
	defer done()

	dir := r.Config.Repo.Dir
	if !r.Host.FileExists(dir) {
		return fmt.Errorf("configuration repository not found at %s (run the install first)", dir)
	}

	common.Info(fmt.Sprintf("Applying system profile %q...", r.Config.Profiles.System))
	if err := r.Runner.Run(ctx, "nixos-rebuild", "switch", "--flake", FlakeRef(dir, r.Config.Profiles.System)); err != nil {
		return fmt.Errorf("nixos-rebuild failed: %w", err)
	}
	common.Success("System profile applied")

	user := r.Config.Profiles.User
	// home-manager refuses flakes in repositories owned by another user.
	if err := r.Runner.Run(ctx, "chown", "-R", user+":", dir); err != nil {
		return fmt.Errorf("hand %s to %s: %w", dir, user, err)
	}

	common.Info(fmt.Sprintf("Applying home profile %q for %s...", r.Config.Profiles.Home, user))
	if err := r.Runner.Run(ctx, "sudo", "-u", user, "-H",
		"home-manager", "switch", "--flake", FlakeRef(dir, r.Config.Profiles.Home)); err != nil {
		return fmt.Errorf("home-manager failed: %w", err)
	}
	common.Success("Home profile applied")

	logger.Info().Str("system", r.Config.Profiles.System).Str("home", r.Config.Profiles.Home).Msg("Rebuild complete")
	return nil
}
