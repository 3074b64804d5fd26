package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/internal/backup"
	"github.com/mesh-intelligence/neuronotes/internal/config"
	"github.com/mesh-intelligence/neuronotes/internal/embedded"
	"github.com/mesh-intelligence/neuronotes/internal/kvstore"
	"github.com/mesh-intelligence/neuronotes/internal/logging"
	"github.com/mesh-intelligence/neuronotes/internal/native"
	"github.com/mesh-intelligence/neuronotes/internal/paths"
	"github.com/mesh-intelligence/neuronotes/internal/store"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// app is what one command invocation runs against. It is opened by the
// root command's pre-run hook and closed by its post-run hook.
type app struct {
	flags rootFlags

	cfg     *config.Config
	dataDir string
	log     zerolog.Logger
	logFile io.Closer
	kv      kvstore.Store
	probe   store.Probe
	store   *store.Store
	backups *backup.Manager
}

func (a *app) open(ctx context.Context) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.dataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(a.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = paths.LogPath(a.dataDir)
	}
	a.log, a.logFile, err = logging.New(logging.Options{
		Level: cfg.Log.Level,
		File:  logFile,
		Quiet: !a.flags.verbose,
	})
	if err != nil {
		return err
	}

	kv, err := kvstore.OpenBolt(paths.KVPath(a.dataDir))
	if err != nil {
		return fmt.Errorf("open key-value store: %w", err)
	}
	a.kv = kv

	a.probe = a.buildProbe()
	a.store = store.New(store.Options{
		Probe:    a.probe,
		Embedded: a.embeddedFactory(),
		Native:   a.nativeFactory(),
		Logger:   a.log,
	})

	backupDir := cfg.Backup.Dir
	if backupDir == "" {
		backupDir = paths.BackupDir(a.dataDir)
	}
	a.backups, err = backup.NewManager(backup.Options{
		Source: a.store,
		Dir:    backupDir,
		Logger: a.log,
	})
	if err != nil {
		return err
	}
	a.log.Debug().Str("config_dir", configDir).Str("data_dir", a.dataDir).Msg("opened")
	return nil
}

// close flushes and releases everything open. It is safe to call more
// than once.
func (a *app) close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
		a.store = nil
	}
	if c, ok := a.probe.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	a.probe = nil
	if a.kv != nil {
		errs = append(errs, a.kv.Close())
		a.kv = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}

// nativeDir is where the native backend keeps its database file.
func (a *app) nativeDir() string {
	if dir := (store.EnvProbe{}).NativeDir(); dir != "" {
		return dir
	}
	return paths.NativeDir(a.dataDir)
}

// buildProbe honors a forced host and otherwise watches for the native
// markers, falling back to a one-shot environment check when the
// directory cannot be watched.
func (a *app) buildProbe() store.Probe {
	switch a.cfg.Host.Force {
	case config.HostEmbedded:
		return store.FixedProbe(false)
	case config.HostNative:
		return store.FixedProbe(true)
	}
	env := store.EnvProbe{}
	watch, err := store.NewWatchProbe(env, filepath.Dir(a.nativeDir()), a.log)
	if err != nil {
		a.log.Debug().Err(err).Msg("host markers not watched")
		return env
	}
	return watch
}

func (a *app) embeddedFactory() store.Factory {
	return func(context.Context) (types.Backend, error) {
		return embedded.Open(embedded.Options{
			KV:               a.kv,
			Key:              kvstore.BlobKey(a.cfg.Mode),
			Debounce:         a.cfg.Debounce(),
			AutosaveInterval: a.cfg.AutosaveInterval(),
			Logger:           a.log,
			Dev:              a.cfg.Dev(),
		}), nil
	}
}

func (a *app) nativeFactory() store.Factory {
	return func(context.Context) (types.Backend, error) {
		dir := a.nativeDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create native dir: %w", err)
		}
		return native.Open(native.Options{
			Bridge: native.SQLiteBridge{Dir: dir},
			Name:   native.DBName(a.cfg.Mode),
			Logger: a.log,
			Dev:    a.cfg.Dev(),
		}), nil
	}
}

// workspace returns id, or the active workspace when id is empty.
func (a *app) workspace(ctx context.Context, id string) (string, error) {
	if id != "" {
		return id, nil
	}
	return a.store.ActiveWorkspace(ctx)
}
