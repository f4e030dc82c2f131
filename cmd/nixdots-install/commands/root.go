package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/config"
	"github.com/nixdots/nixdots-install/internal/logging"
	"github.com/nixdots/nixdots-install/internal/provision"
)

const rebootDelay = 5 * time.Second

// Root returns the top-level command. Without flags it runs the interactive
// install; --rebuild applies the configuration on the installed system.
func Root() *cobra.Command {
	var (
		verbosity  int
		configPath string
		opts       provision.Options
	)

	cmd := &cobra.Command{
		Use:   "nixdots-install",
		Short: "Install NixOS onto a disk and apply a dotfiles configuration",
		Long: `nixdots-install erases the disk you choose, creates an EFI system partition
and an ext4 root labelled NIXOS, clones your dotfiles repository onto it and
runs nixos-install.

After rebooting into the new system, run it again with --rebuild to apply the
repository's system profile and home-manager profile.

Must be run as root.`,
		Example: `  # From the NixOS installer ISO
  sudo nixdots-install

  # After the first boot
  sudo nixdots-install --rebuild

  # Show the commands without touching any disk
  sudo nixdots-install --dry-run -vv`,
		// Anything other than --rebuild runs the install path.
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Setup(verbosity)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				common.Warning(fmt.Sprintf("Ignoring arguments: %s", strings.Join(args, " ")))
			}
			opts.RebootDelay = rebootDelay
			opts.LogPath = logging.Path()
			return run(cmd.Context(), configPath, opts)
		},
	}

	cmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	cmd.Flags().BoolVar(&opts.Rebuild, "rebuild", false, "Apply the system and home profiles (run after the first boot)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: "+config.DefaultPath+")")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print destructive commands instead of running them")
	cmd.Flags().BoolVar(&opts.NoReboot, "no-reboot", false, "Do not reboot after installing")

	cmd.AddCommand(Version())

	return cmd
}

func run(ctx context.Context, configPath string, opts provision.Options) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var runner common.Runner = common.NewExecRunner()
	if opts.DryRun {
		runner = common.NewDryRunner()
	}

	w := &provision.Workflow{
		Runner:   runner,
		Host:     common.LocalHost{},
		Prompter: common.NewPrompter(),
		Config:   cfg,
		Options:  opts,
	}
	return w.Run(ctx)
}
