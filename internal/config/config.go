// Package config loads neuronotes settings from config.yaml, a .env file
// and NEURONOTES_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "NEURONOTES"
)

// Modes.
const (
	ModeDev  = "dev"
	ModeProd = "prod"
)

// Host selection.
const (
	HostAuto     = "auto"
	HostEmbedded = "embedded"
	HostNative   = "native"
)

// Validation errors.
var (
	ErrModeUnknown      = errors.New("unknown mode")
	ErrHostUnknown      = errors.New("unknown host selection")
	ErrDebounceInvalid  = errors.New("debounce must be positive")
	ErrBackupInvalid    = errors.New("backup interval must not be negative")
	ErrLogLevelUnknown  = errors.New("unknown log level")
	ErrRemoteIncomplete = errors.New("remote dsn and user id must be set together")
)

// Config is the resolved configuration.
type Config struct {
	Mode              string       `mapstructure:"mode" yaml:"mode"`
	DataDir           string       `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	DebounceMS        int          `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	AutosaveIntervalS int          `mapstructure:"autosave_interval_s" yaml:"autosave_interval_s"`
	Backup            BackupConfig `mapstructure:"backup" yaml:"backup"`
	Log               LogConfig    `mapstructure:"log" yaml:"log"`
	Remote            RemoteConfig `mapstructure:"remote" yaml:"remote,omitempty"`
	Host              HostConfig   `mapstructure:"host" yaml:"host"`
}

type BackupConfig struct {
	Dir           string `mapstructure:"dir" yaml:"dir,omitempty"`
	AutoIntervalM int    `mapstructure:"auto_interval_m" yaml:"auto_interval_m"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
}

// RemoteConfig holds the hosted sync target. Both values are usually
// supplied through the environment or .env rather than config.yaml.
type RemoteConfig struct {
	DSN    string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	UserID string `mapstructure:"user_id" yaml:"user_id,omitempty"`
}

type HostConfig struct {
	Force string `mapstructure:"force" yaml:"force"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:              ModeProd,
		DebounceMS:        1000,
		AutosaveIntervalS: 30,
		Log:               LogConfig{Level: "info"},
		Host:              HostConfig{Force: HostAuto},
	}
}

// Validate checks the configuration and returns one of the sentinel errors
// of this package on failure.
func (c Config) Validate() error {
	if c.Mode != ModeDev && c.Mode != ModeProd {
		return fmt.Errorf("%w: %q", ErrModeUnknown, c.Mode)
	}
	switch c.Host.Force {
	case HostAuto, HostEmbedded, HostNative:
	default:
		return fmt.Errorf("%w: %q", ErrHostUnknown, c.Host.Force)
	}
	if c.DebounceMS <= 0 {
		return ErrDebounceInvalid
	}
	if c.Backup.AutoIntervalM < 0 {
		return ErrBackupInvalid
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil || c.Log.Level == "" {
		return fmt.Errorf("%w: %q", ErrLogLevelUnknown, c.Log.Level)
	}
	if (c.Remote.DSN == "") != (c.Remote.UserID == "") {
		return ErrRemoteIncomplete
	}
	return nil
}

// Dev reports whether development mode is on.
func (c Config) Dev() bool { return c.Mode == ModeDev }

// Debounce is the save debounce window.
func (c Config) Debounce() time.Duration { return time.Duration(c.DebounceMS) * time.Millisecond }

// AutosaveInterval is the periodic save interval; zero or less disables it.
func (c Config) AutosaveInterval() time.Duration {
	if c.AutosaveIntervalS <= 0 {
		return -1
	}
	return time.Duration(c.AutosaveIntervalS) * time.Second
}

// BackupInterval is the automatic backup interval; zero disables it.
func (c Config) BackupInterval() time.Duration {
	return time.Duration(c.Backup.AutoIntervalM) * time.Minute
}

// Load reads configDir/config.yaml, writing a default file on first run.
// A .env file in the working directory is loaded into the environment
// first, without overriding variables that are already set.
func Load(configDir string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := WriteDefault(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefaults(v, Default())
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("mode", d.Mode)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("debounce_ms", d.DebounceMS)
	v.SetDefault("autosave_interval_s", d.AutosaveIntervalS)
	v.SetDefault("backup.dir", d.Backup.Dir)
	v.SetDefault("backup.auto_interval_m", d.Backup.AutoIntervalM)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("remote.dsn", d.Remote.DSN)
	v.SetDefault("remote.user_id", d.Remote.UserID)
	v.SetDefault("host.force", d.Host.Force)
}

// WriteDefault writes config.yaml with the built-in defaults unless the
// file exists.
func WriteDefault(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# neuronotes configuration\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
