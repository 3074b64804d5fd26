// Package paths resolves where neuronotes keeps its configuration and data.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "neuronotes"

// Environment variables overriding the directories.
const (
	EnvConfigDir = "NEURONOTES_CONFIG_DIR"
	EnvDataDir   = "NEURONOTES_DATA_DIR"
)

// File and directory names inside the data directory.
const (
	KVFileName    = "kv.db"
	BackupDirName = "backups"
	NativeDirName = "native"
	LogFileName   = "neuronotes.log"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the per-user configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/neuronotes (fallback ~/.config/neuronotes)
// macOS:   ~/Library/Application Support/neuronotes
// Windows: %APPDATA%/neuronotes
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// DefaultDataDir returns the per-user data directory.
//
// Linux:   $XDG_DATA_HOME/neuronotes (fallback ~/.local/share/neuronotes)
// macOS and Windows: the configuration directory
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	return DefaultConfigDir()
}

func xdgDir(env, fallback string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}

// ResolveConfigDir applies flag > NEURONOTES_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config value > NEURONOTES_DATA_DIR >
// DefaultDataDir.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	return DefaultDataDir()
}

// KVPath is the host key-value store file inside dataDir.
func KVPath(dataDir string) string { return filepath.Join(dataDir, KVFileName) }

// BackupDir is the default backup directory inside dataDir.
func BackupDir(dataDir string) string { return filepath.Join(dataDir, BackupDirName) }

// NativeDir is where the native bridge keeps its database files.
func NativeDir(dataDir string) string { return filepath.Join(dataDir, NativeDirName) }

// LogPath is the default log file inside dataDir.
func LogPath(dataDir string) string { return filepath.Join(dataDir, LogFileName) }
