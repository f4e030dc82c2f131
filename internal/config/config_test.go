package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/mnt", cfg.MountPoint)
	assert.Equal(t, "1G", cfg.Disk.ESPSize)
	assert.Equal(t, "EFI", cfg.Disk.ESPLabel)
	assert.Equal(t, "NIXOS", cfg.Disk.RootLabel)
	assert.Equal(t, 30*time.Second, cfg.LabelWait())
	assert.Equal(t, "/mnt/etc/nixos/dotfiles", cfg.TargetRepoDir())
}

func TestParseTOMLOverridesDefaults(t *testing.T) {
	data := []byte(`
mount_point = "/target"

[disk]
esp_size = "512M"
full_wipe = false

[repo]
url = "https://example.com/dots.git"
branch = "main"

[profiles]
system = "laptop"
`)
	cfg, err := Parse(data, ".toml")
	require.NoError(t, err)

	assert.Equal(t, "/target", cfg.MountPoint)
	assert.Equal(t, "512M", cfg.Disk.ESPSize)
	assert.False(t, cfg.Disk.FullWipe)
	assert.Equal(t, "NIXOS", cfg.Disk.RootLabel, "unset keys keep defaults")
	assert.Equal(t, "main", cfg.Repo.Branch)
	assert.Equal(t, "laptop", cfg.Profiles.System)
	assert.Equal(t, "user", cfg.Profiles.Home)
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
repo:
  url: git@example.com:me/dots.git
profiles:
  home: alice
  user: alice
`)
	cfg, err := Parse(data, ".yml")
	require.NoError(t, err)
	assert.Equal(t, "git@example.com:me/dots.git", cfg.Repo.URL)
	assert.Equal(t, "alice", cfg.Profiles.Home)
	assert.Equal(t, "/mnt", cfg.MountPoint)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"relative mount", `mount_point = "mnt"`, "mount_point"},
		{"root mount", `mount_point = "/"`, "mount_point"},
		{"bad esp size", "[disk]\nesp_size = \"1GiB\"", "esp_size"},
		{"same labels", "[disk]\nesp_label = \"X\"\nroot_label = \"X\"", "labels must differ"},
		{"bad timeout", "[disk]\nlabel_timeout = \"soon\"", "label_timeout"},
		{"relative repo dir", "[repo]\ndir = \"dots\"", "repo.dir"},
		{"absolute hardware path", "[repo]\nhardware_path = \"/hw.nix\"", "hardware_path"},
		{"empty profile", "[profiles]\nsystem = \"\"", "profiles"},
		{"syntax", "mount_point = ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), ".toml")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("missing default file yields defaults", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("reads file by extension", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "install.yaml")
		require.NoError(t, os.WriteFile(path, []byte("mount_point: /target\n"), 0o644))
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/target", cfg.MountPoint)
	})
}
