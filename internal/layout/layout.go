// Package layout wipes the target disk and recreates the fixed two-partition
// GPT layout: an EFI system partition and a root filesystem, both mounted by
// label under the configured mount point.
package layout

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nixdots/nixdots-install/internal/common"
	"github.com/nixdots/nixdots-install/internal/config"
	"github.com/nixdots/nixdots-install/internal/disk"
	"github.com/nixdots/nixdots-install/internal/logging"
)

const (
	mib         = 1 << 20
	byLabelDir  = "/dev/disk/by-label"
	typeESP     = "ef00"
	typeLinuxFS = "8300"
)

// Step is one external command of the layout.
type Step struct {
	Title string
	Name  string
	Args  []string
}

func (s Step) String() string {
	return s.Name + " " + strings.Join(s.Args, " ")
}

// LabelPath returns the udev by-label path for label.
func LabelPath(label string) string {
	return filepath.Join(byLabelDir, label)
}

// WipePlan returns the commands that erase the disk, partition it and create
// both filesystems. sizeBytes is only used when a full overwrite is configured;
// dd counts it in bytes so a trailing partial MiB is zeroed too.
func WipePlan(t disk.Target, d config.Disk, sizeBytes int64) []Step {
	var steps []Step
	if d.FullWipe {
		steps = append(steps, Step{
			Title: "Overwriting disk with zeros",
			Name:  "dd",
			Args: []string{
				"if=/dev/zero",
				"of=" + t.Path,
				"bs=1M",
				"iflag=count_bytes",
				"count=" + strconv.FormatInt(sizeBytes, 10),
				"conv=fsync",
				"status=progress",
			},
		})
	}
	return append(steps,
		Step{"Wiping filesystem signatures", "wipefs", []string{"--all", "--force", t.Path}},
		Step{"Creating GPT partition table", "sgdisk", []string{"--clear", t.Path}},
		Step{"Creating EFI system partition", "sgdisk", []string{
			"--new=1:0:+" + d.ESPSize,
			"--typecode=1:" + typeESP,
			"--change-name=1:" + d.ESPLabel,
			t.Path,
		}},
		Step{"Creating root partition", "sgdisk", []string{
			"--new=2:0:0",
			"--typecode=2:" + typeLinuxFS,
			"--change-name=2:" + d.RootLabel,
			t.Path,
		}},
		Step{"Re-reading partition table", "partprobe", []string{t.Path}},
		Step{"Waiting for udev", "udevadm", []string{"settle"}},
		Step{"Formatting EFI partition", "mkfs.fat", []string{"-F", "32", "-n", d.ESPLabel, t.ESP()}},
		Step{"Formatting root partition", "mkfs.ext4", []string{"-F", "-L", d.RootLabel, t.Root()}},
	)
}

// MountPlan mounts both filesystems by label.
func MountPlan(cfg config.Config) []Step {
	boot := filepath.Join(cfg.MountPoint, "boot")
	return []Step{
		{"Mounting root filesystem", "mount", []string{LabelPath(cfg.Disk.RootLabel), cfg.MountPoint}},
		{"Creating boot mount point", "mkdir", []string{"-p", boot}},
		{"Mounting EFI partition", "mount", []string{"-o", "umask=077", LabelPath(cfg.Disk.ESPLabel), boot}},
	}
}

// Layout applies the partition layout to a validated target.
type Layout struct {
	Runner common.Runner
	Host   common.Host
	Config config.Config

	// DryRun skips waiting for labels that will never appear.
	DryRun bool

	PollInterval time.Duration
}

// New returns a Layout with the default poll interval.
func New(r common.Runner, h common.Host, cfg config.Config) *Layout {
	return &Layout{Runner: r, Host: h, Config: cfg, PollInterval: 500 * time.Millisecond}
}

// Apply wipes, partitions, formats and mounts t. Every step is fatal and
// nothing is rolled back.
func (l *Layout) Apply(ctx context.Context, t disk.Target) error {
	logger := logging.GetLogger("layout")
	done := logging.LogOperationStart(logger, "apply layout")
	defer done()

	var size int64
	if l.Config.Disk.FullWipe {
		var err error
		size, err = DiskSize(ctx, l.Runner, t)
		if err != nil {
			return err
		}
		logger.Info().Str("disk", t.Path).Int64("bytes", size).Msg("Disk size")
	}

	if err := l.run(ctx, WipePlan(t, l.Config.Disk, size)); err != nil {
		return err
	}

	if !l.DryRun {
		common.Info("Waiting for disk labels...")
		labels := []string{l.Config.Disk.RootLabel, l.Config.Disk.ESPLabel}
		if err := WaitForLabels(ctx, l.Host, labels, l.Config.LabelWait(), l.PollInterval); err != nil {
			return err
		}
	}

	return l.run(ctx, MountPlan(l.Config))
}

func (l *Layout) run(ctx context.Context, steps []Step) error {
	for _, s := range steps {
		common.Info(s.Title + "...")
		if err := l.Runner.Run(ctx, s.Name, s.Args...); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(s.Title), err)
		}
	}
	return nil
}

// DiskSize returns the size of t in bytes.
func DiskSize(ctx context.Context, r common.Runner, t disk.Target) (int64, error) {
	out, err := r.Output(ctx, "blockdev", "--getsize64", t.Path)
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse size of %s: %w", t.Path, err)
	}
	if size < mib {
		return 0, fmt.Errorf("%s is too small (%d bytes)", t.Path, size)
	}
	return size, nil
}

// ErrLabelTimeout is returned when a filesystem label does not show up.
var ErrLabelTimeout = errors.New("timed out waiting for disk label")

// WaitForLabels polls until every label exists under /dev/disk/by-label.
func WaitForLabels(ctx context.Context, h common.Host, labels []string, timeout, interval time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		missing := ""
		for _, label := range labels {
			if !h.FileExists(LabelPath(label)) {
				missing = label
				break
			}
		}
		if missing == "" {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w %s", ErrLabelTimeout, missing)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
