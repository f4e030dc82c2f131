// Package main is the entry point for nixdots-install.
//
// nixdots-install erases a disk, installs NixOS onto it with a dotfiles
// repository checked out, and after the first boot applies the repository's
// system and home-manager profiles:
//
//	sudo nixdots-install            # from the installer ISO
//	sudo nixdots-install --rebuild  # on the installed system
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nixdots/nixdots-install/cmd/nixdots-install/commands"
	"github.com/nixdots/nixdots-install/internal/common"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		common.Error(err.Error())
		stop()
		os.Exit(1)
	}
}
