// Package config loads installer settings from nixdots.toml (or a YAML file),
// falling back to built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "nixdots.toml"

// Config represents the nixdots.toml configuration file.
type Config struct {
	MountPoint string   `toml:"mount_point" yaml:"mount_point"`
	Disk       Disk     `toml:"disk" yaml:"disk"`
	Repo       Repo     `toml:"repo" yaml:"repo"`
	Profiles   Profiles `toml:"profiles" yaml:"profiles"`
}

// Disk controls the partition layout.
type Disk struct {
	ESPSize      string `toml:"esp_size" yaml:"esp_size"`           // sgdisk size suffix, e.g. "1G"
	ESPLabel     string `toml:"esp_label" yaml:"esp_label"`         // FAT32 volume label
	RootLabel    string `toml:"root_label" yaml:"root_label"`       // ext4 filesystem label
	FullWipe     bool   `toml:"full_wipe" yaml:"full_wipe"`         // zero the whole disk before partitioning
	LabelTimeout string `toml:"label_timeout" yaml:"label_timeout"` // how long to wait for /dev/disk/by-label
}

// Repo is the dotfiles repository cloned onto the target.
type Repo struct {
	URL          string `toml:"url" yaml:"url"`
	Branch       string `toml:"branch" yaml:"branch"`
	Dir          string `toml:"dir" yaml:"dir"`                     // absolute path on the installed system
	HardwarePath string `toml:"hardware_path" yaml:"hardware_path"` // relative to Dir
}

// Profiles names the flake outputs applied by --rebuild.
type Profiles struct {
	System string `toml:"system" yaml:"system"`
	Home   string `toml:"home" yaml:"home"`
	User   string `toml:"user" yaml:"user"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MountPoint: "/mnt",
		Disk: Disk{
			ESPSize:      "1G",
			ESPLabel:     "EFI",
			RootLabel:    "NIXOS",
			FullWipe:     true,
			LabelTimeout: "30s",
		},
		Repo: Repo{
			URL:          "https://github.com/nixdots/dotfiles.git",
			Dir:          "/etc/nixos/dotfiles",
			HardwarePath: "hosts/default/hardware-configuration.nix",
		},
		Profiles: Profiles{
			System: "default",
			Home:   "user",
			User:   "user",
		},
	}
}

// Load reads configuration from path. When path is empty DefaultPath is tried
// and a missing file yields the defaults; an explicit path must exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data on top of the defaults. ext selects the format: ".yaml"
// and ".yml" are YAML, anything else is TOML.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var sizeRe = regexp.MustCompile(`^[1-9][0-9]*[KMGT]$`)

// Validate checks that the configuration can drive an installation.
func (c Config) Validate() error {
	var errs []error
	if !filepath.IsAbs(c.MountPoint) || filepath.Clean(c.MountPoint) == "/" {
		errs = append(errs, fmt.Errorf("mount_point must be an absolute path other than /, got %q", c.MountPoint))
	}
	if !sizeRe.MatchString(c.Disk.ESPSize) {
		errs = append(errs, fmt.Errorf("disk.esp_size must look like 512M or 1G, got %q", c.Disk.ESPSize))
	}
	if c.Disk.ESPLabel == "" || c.Disk.RootLabel == "" {
		errs = append(errs, errors.New("disk labels must not be empty"))
	}
	if c.Disk.ESPLabel == c.Disk.RootLabel {
		errs = append(errs, fmt.Errorf("disk labels must differ, both are %q", c.Disk.ESPLabel))
	}
	if _, err := time.ParseDuration(c.Disk.LabelTimeout); err != nil {
		errs = append(errs, fmt.Errorf("disk.label_timeout: %w", err))
	}
	if c.Repo.URL == "" {
		errs = append(errs, errors.New("repo.url must not be empty"))
	}
	if !filepath.IsAbs(c.Repo.Dir) {
		errs = append(errs, fmt.Errorf("repo.dir must be absolute, got %q", c.Repo.Dir))
	}
	if c.Repo.HardwarePath == "" || filepath.IsAbs(c.Repo.HardwarePath) {
		errs = append(errs, fmt.Errorf("repo.hardware_path must be relative, got %q", c.Repo.HardwarePath))
	}
	if c.Profiles.System == "" || c.Profiles.Home == "" || c.Profiles.User == "" {
		errs = append(errs, errors.New("profiles.system, profiles.home and profiles.user are required"))
	}
	return errors.Join(errs...)
}

// LabelWait returns the parsed label timeout. Validate guarantees it parses.
func (c Config) LabelWait() time.Duration {
	d, err := time.ParseDuration(c.Disk.LabelTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// TargetRepoDir is the clone destination while the target is mounted.
func (c Config) TargetRepoDir() string {
	return filepath.Join(c.MountPoint, c.Repo.Dir)
}
