package installer

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/common/commontest"
	"github.com/nixdots/nixdots-install/internal/config"
)

func captureOut(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := common.Out
	common.Out = &buf
	t.Cleanup(func() { common.Out = prev })
	return &buf
}

func TestInstall(t *testing.T) {
	captureOut(t)
	r := commontest.NewRunner()
	cfg := config.Default()
	cfg.Repo.Branch = "main"
	inst := &Installer{Runner: r, Config: cfg}

	require.NoError(t, inst.Install(context.Background()))

	assert.Equal(t, []string{
		"mountpoint -q /mnt",
		"mountpoint -q /mnt/boot",
		"mkdir -p /mnt/etc/nixos",
		"git clone --depth 1 --branch main https://github.com/nixdots/dotfiles.git /mnt/etc/nixos/dotfiles",
		"nixos-generate-config --root /mnt",
		"install -D -m 0644 /mnt/etc/nixos/hardware-configuration.nix /mnt/etc/nixos/dotfiles/hosts/default/hardware-configuration.nix",
		"git -C /mnt/etc/nixos/dotfiles add --intent-to-add --force hosts/default/hardware-configuration.nix",
		"nixos-install --root /mnt --no-root-passwd",
	}, r.Lines())
}

func TestInstallRequiresMountedTarget(t *testing.T) {
	captureOut(t)
	r := commontest.NewRunner()
	r.FailOn["mountpoint"] = true
	inst := &Installer{Runner: r, Config: config.Default()}

	err := inst.Install(context.Background())
	assert.ErrorContains(t, err, "/mnt is not mounted")
	assert.Equal(t, []string{"mountpoint"}, r.Names())
}

func TestInstallDryRunSkipsMountCheck(t *testing.T) {
	captureOut(t)
	r := commontest.NewRunner()
	r.FailOn["mountpoint"] = true
	inst := &Installer{Runner: r, Config: config.Default(), DryRun: true}

	require.NoError(t, inst.Install(context.Background()))
	assert.NotContains(t, r.Names(), "mountpoint")
}

func TestHardwareConfigTracksCopiedFile(t *testing.T) {
	r := commontest.NewRunner()
	cfg := config.Default()
	cfg.Repo.HardwarePath = "machines/desk/hardware.nix"
	inst := &Installer{Runner: r, Config: cfg}

	require.NoError(t, inst.HardwareConfig(context.Background()))

	lines := r.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "install -D -m 0644 /mnt/etc/nixos/hardware-configuration.nix /mnt/etc/nixos/dotfiles/machines/desk/hardware.nix", lines[1])
	assert.Equal(t, "git -C /mnt/etc/nixos/dotfiles add --intent-to-add --force machines/desk/hardware.nix", lines[2])
}

func TestInstallStopsOnCloneFailure(t *testing.T) {
	captureOut(t)
	r := commontest.NewRunner()
	r.FailOn["git"] = true
	inst := &Installer{Runner: r, Config: config.Default()}

	err := inst.Install(context.Background())
	var cmdErr *common.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "git", cmdErr.Name)
	assert.NotContains(t, r.Names(), "nixos-install")
}

func TestInstallArchivesLog(t *testing.T) {
	captureOut(t)
	dir := t.TempDir()
	logFile := filepath.Join(dir, "install.log")
	require.NoError(t, os.WriteFile(logFile, []byte("partitioned /dev/sda\n"), 0o644))

	cfg := config.Default()
	cfg.MountPoint = filepath.Join(dir, "mnt")
	inst := &Installer{Runner: commontest.NewRunner(), Config: cfg, LogPath: logFile}

	require.NoError(t, inst.Install(context.Background()))
	assert.FileExists(t, filepath.Join(cfg.MountPoint, ArchivedLogPath))
}

func TestArchiveFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.log")
	dst := filepath.Join(dir, "nested", "out.log.xz")
	content := bytes.Repeat([]byte("nixos-install output line\n"), 200)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	require.NoError(t, ArchiveFile(src, dst))

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	r, err := xz.NewReader(f)
	require.NoError(t, err)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestArchiveFileMissingSource(t *testing.T) {
	err := ArchiveFile(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "out.xz"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReboot(t *testing.T) {
	out := captureOut(t)
	r := commontest.NewRunner()
	inst := &Installer{Runner: r, Config: config.Default()}

	require.NoError(t, inst.Reboot(context.Background(), time.Millisecond))
	assert.Equal(t, []string{"reboot"}, r.Lines())
	assert.Contains(t, out.String(), "Rebooting in")
}

func TestRebootCancelled(t *testing.T) {
	captureOut(t)
	r := commontest.NewRunner()
	inst := &Installer{Runner: r, Config: config.Default()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, inst.Reboot(ctx, time.Hour), context.Canceled)
	assert.Empty(t, r.Calls)
}

func TestPrintNextSteps(t *testing.T) {
	out := captureOut(t)
	PrintNextSteps(config.Default())
	assert.Contains(t, out.String(), "nixdots-install --rebuild")
	assert.Contains(t, out.String(), `"default" system profile`)
}
