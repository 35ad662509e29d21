package config

import (
	"os"
	"path/filepath"
)

var CONFIG_DIR = func() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.Getenv("HOME"), ".config", "voxbar")
	}
	return filepath.Join(dir, "voxbar")
}()

var CACHE_DIR = func() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.Getenv("HOME"), ".cache", "voxbar")
	}
	return filepath.Join(dir, "voxbar")
}()

// Store file names under CONFIG_DIR.
const (
	AddonConfigFile = "addons.json"
	HotkeyFile      = "hotkeys.json"
	LaunchFile      = "mode-launch.json"
)

func AddonConfigPath() string { return filepath.Join(CONFIG_DIR, AddonConfigFile) }

func HotkeyPath() string { return filepath.Join(CONFIG_DIR, HotkeyFile) }

func LaunchPath() string { return filepath.Join(CONFIG_DIR, LaunchFile) }

// EnsureDirectories creates the config and cache directories.
func EnsureDirectories() error {
	for _, d := range []string{CONFIG_DIR, CACHE_DIR} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}
