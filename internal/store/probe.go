package store

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Host markers read by EnvProbe.
const (
	EnvShell     = "NEURONOTES_SHELL"
	EnvNativeDir = "NEURONOTES_NATIVE_DIR"
	ShellNative  = "native"
)

// Probe reports whether the native bridge is usable right now.
type Probe interface {
	Native() bool
}

// EnvProbe detects the native shell from the environment. Both markers must
// be present: EnvShell set to "native" and EnvNativeDir naming an existing
// directory. Anything less resolves to embedded.
type EnvProbe struct {
	Getenv func(string) string
	Stat   func(string) (os.FileInfo, error)
}

func (p EnvProbe) Native() bool {
	getenv, stat := p.Getenv, p.Stat
	if getenv == nil {
		getenv = os.Getenv
	}
	if stat == nil {
		stat = os.Stat
	}
	if getenv(EnvShell) != ShellNative {
		return false
	}
	dir := getenv(EnvNativeDir)
	if dir == "" {
		return false
	}
	fi, err := stat(dir)
	return err == nil && fi.IsDir()
}

// NativeDir returns the directory named by EnvNativeDir.
func (p EnvProbe) NativeDir() string {
	if p.Getenv != nil {
		return p.Getenv(EnvNativeDir)
	}
	return os.Getenv(EnvNativeDir)
}

// FixedProbe always answers the same; used when the host is forced by
// configuration.
type FixedProbe bool

func (p FixedProbe) Native() bool { return bool(p) }

// WatchProbe caches an inner probe's answer and refreshes it whenever the
// watched directory changes, so a marker that appears after startup is
// noticed. A cached positive answer is always re-checked against the inner
// probe before it is returned.
type WatchProbe struct {
	inner   Probe
	watcher *fsnotify.Watcher
	log     zerolog.Logger
	native  atomic.Bool

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatchProbe watches dir (typically the parent of the native directory)
// for changes.
func NewWatchProbe(inner Probe, dir string, log zerolog.Logger) (*WatchProbe, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Clean(dir)); err != nil {
		w.Close()
		return nil, err
	}
	p := &WatchProbe{inner: inner, watcher: w, log: log, done: make(chan struct{})}
	p.native.Store(inner.Native())
	go p.loop()
	return p, nil
}

func (p *WatchProbe) loop() {
	defer close(p.done)
	for {
		select {
		case ev, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			now := p.inner.Native()
			if p.native.Swap(now) != now {
				p.log.Info().Str("path", ev.Name).Bool("native", now).Msg("host markers changed")
			}
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.log.Warn().Err(err).Msg("host marker watch error")
		}
	}
}

func (p *WatchProbe) Native() bool {
	if !p.native.Load() {
		return false
	}
	ok := p.inner.Native()
	p.native.Store(ok)
	return ok
}

// Close stops watching.
func (p *WatchProbe) Close() error {
	var err error
	p.closeOnce.Do(func() {
		err = p.watcher.Close()
		<-p.done
	})
	return err
}
