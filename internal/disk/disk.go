// Package disk validates the operator's choice of target disk and derives the
// device paths of its partitions. Nothing in this package writes to a disk.
package disk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nixdots/nixdots-install/internal/common"
)

// Scheme is the convention mapping a disk name to its partition names.
type Scheme int

const (
	// SchemeSATA appends the partition number directly: sda -> sda1.
	SchemeSATA Scheme = iota
	// SchemeNVMe separates the number with "p": nvme0n1 -> nvme0n1p1.
	SchemeNVMe
)

func (s Scheme) String() string {
	if s == SchemeNVMe {
		return "nvme"
	}
	return "sata"
}

// Separator returns the string placed between disk name and partition number.
func (s Scheme) Separator() string {
	if s == SchemeNVMe {
		return "p"
	}
	return ""
}

// SchemeFor classifies a disk name by its prefix.
func SchemeFor(name string) Scheme {
	if strings.HasPrefix(name, "nvme") {
		return SchemeNVMe
	}
	return SchemeSATA
}

// Target is a validated disk. It is built once by Select and passed by value.
type Target struct {
	Name   string // e.g. "nvme0n1"
	Path   string // e.g. "/dev/nvme0n1"
	Scheme Scheme
}

// NewTarget derives a Target from a disk name without validating it.
func NewTarget(name string) Target {
	return Target{
		Name:   name,
		Path:   "/dev/" + name,
		Scheme: SchemeFor(name),
	}
}

// Partition returns the device path of partition n.
func (t Target) Partition(n int) string {
	return fmt.Sprintf("%s%s%d", t.Path, t.Scheme.Separator(), n)
}

// ESP is the EFI system partition, always partition 1.
func (t Target) ESP() string {
	return t.Partition(1)
}

// Root is the root filesystem partition, always partition 2.
func (t Target) Root() string {
	return t.Partition(2)
}

// ErrNotRoot is returned when the process lacks root privileges.
var ErrNotRoot = errors.New("must be run as root")

// DeviceNotFoundError is returned when a name does not resolve to a block
// device.
type DeviceNotFoundError struct {
	Path string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("no block device at %s", e.Path)
}

// ConfirmationMismatchError is returned when the confirmation differs from the
// first answer.
type ConfirmationMismatchError struct {
	Name         string
	Confirmation string
}

func (e *ConfirmationMismatchError) Error() string {
	return fmt.Sprintf("confirmation %q does not match disk %q", e.Confirmation, e.Name)
}

// CheckPrivilege fails with ErrNotRoot unless the effective uid is 0.
func CheckPrivilege(h common.Host) error {
	if !common.IsRoot(h) {
		return ErrNotRoot
	}
	return nil
}

// normalize trims whitespace and an accidental /dev/ prefix.
func normalize(input string) string {
	return strings.TrimPrefix(strings.TrimSpace(input), "/dev/")
}

// Validate checks that name resolves to a block device under /dev.
func Validate(h common.Host, name string) (Target, error) {
	name = normalize(name)
	t := NewTarget(name)
	if name == "" || strings.Contains(name, "/") {
		return Target{}, &DeviceNotFoundError{Path: t.Path}
	}
	if !h.IsBlockDevice(t.Path) {
		return Target{}, &DeviceNotFoundError{Path: t.Path}
	}
	return t, nil
}

// Select asks for the disk, validates it and asks the operator to type the
// name a second time. It returns before any prompt when not running as root.
func Select(ctx context.Context, h common.Host, p common.Prompter) (Target, error) {
	if err := CheckPrivilege(h); err != nil {
		return Target{}, err
	}

	name, err := p.Input(ctx, "Disk to install to (e.g. sda, nvme0n1)")
	if err != nil {
		return Target{}, err
	}
	t, err := Validate(h, name)
	if err != nil {
		return Target{}, err
	}

	common.Warning(fmt.Sprintf("ALL DATA ON %s WILL BE DESTROYED", t.Path))
	confirmation, err := p.Input(ctx, "Type the disk name again to confirm")
	if err != nil {
		return Target{}, err
	}
	if normalize(confirmation) != t.Name {
		return Target{}, &ConfirmationMismatchError{Name: t.Name, Confirmation: strings.TrimSpace(confirmation)}
	}
	return t, nil
}
