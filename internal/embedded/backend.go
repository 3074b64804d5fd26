// Package embedded is the in-process storage backend: an in-memory SQLite
// engine whose serialized image is kept in the host key-value store.
//
// Every Execute schedules a debounced save. A periodic autosave covers a
// debounce window that never settles, and Close saves synchronously. A
// failed save is logged and recorded in Stats; the in-memory state stays
// authoritative for the session.
package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/neuronotes/internal/debounce"
	"github.com/mesh-intelligence/neuronotes/internal/kvstore"
	"github.com/mesh-intelligence/neuronotes/internal/repo"
	"github.com/mesh-intelligence/neuronotes/internal/schema"
	"github.com/mesh-intelligence/neuronotes/internal/sqlutil"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Defaults for Options.
const (
	DefaultDebounce         = time.Second
	DefaultAutosaveInterval = 30 * time.Second
)

// Options configures an embedded Backend.
type Options struct {
	KV  kvstore.Store
	Key string // blob key; kvstore.BlobKeyProd when empty

	Debounce         time.Duration // DefaultDebounce when zero
	AutosaveInterval time.Duration // DefaultAutosaveInterval when zero, disabled when negative

	Logger zerolog.Logger
	// Dev logs failing statements with their SQL and parameters.
	Dev bool
	Now func() time.Time
}

// Stats reports persistence activity.
type Stats struct {
	Saves      int
	Failures   int
	LastSize   int
	LastSaveAt time.Time
	LastError  error
}

// Backend implements types.Backend and, through the embedded Repository,
// every specialized accessor.
type Backend struct {
	*repo.Repository

	opts Options
	log  zerolog.Logger

	initMu sync.Mutex

	mu     sync.Mutex // serializes statements and lifecycle changes
	db     *sql.DB
	conn   *sql.Conn
	ready  bool
	closed bool
	inTx   bool

	saver    *debounce.Debouncer
	autosave *time.Timer
	dirty    atomic.Bool

	statsMu sync.Mutex
	stats   Stats
}

// Open returns an uninitialized Backend. Nothing is loaded until Init.
func Open(opts Options) *Backend {
	if opts.Key == "" {
		opts.Key = kvstore.BlobKeyProd
	}
	if opts.Debounce == 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.AutosaveInterval == 0 {
		opts.AutosaveInterval = DefaultAutosaveInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.KV == nil {
		opts.KV = kvstore.NewMemory()
	}

	b := &Backend{
		opts: opts,
		log:  opts.Logger.With().Str("backend", types.KindEmbedded).Logger(),
	}
	b.saver = debounce.New(opts.Debounce, b.save)
	b.Repository = repo.New(b, repo.WithLogger(opts.Logger), repo.WithNow(opts.Now))
	return b
}

func (b *Backend) Kind() string { return types.KindEmbedded }

// Repo returns the repository bound to this backend.
func (b *Backend) Repo() *repo.Repository { return b.Repository }

// Init loads the stored image, falling back to a fresh database when the
// image is absent, unreadable or holds no tables, then creates and migrates
// the schema. Only a failure to bring up any schema at all is returned.
func (b *Backend) Init(ctx context.Context) error {
	b.initMu.Lock()
	defer b.initMu.Unlock()

	b.mu.Lock()
	ready, closed := b.ready, b.closed
	b.mu.Unlock()
	if closed {
		return types.ErrClosed
	}
	if ready {
		return nil
	}

	if err := b.reset(ctx); err != nil {
		return fmt.Errorf("%w: open engine: %v", types.ErrInitFailed, err)
	}

	fresh := true
	blob, err := b.opts.KV.Get(ctx, b.opts.Key)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		b.log.Debug().Str("key", b.opts.Key).Msg("no stored image, starting fresh")
	case err != nil:
		b.log.Warn().Err(err).Str("key", b.opts.Key).Msg("reading stored image failed, starting fresh")
	default:
		if err := b.load(ctx, blob); err != nil {
			b.log.Warn().Err(err).Int("size", len(blob)).Msg("stored image is corrupt, starting fresh")
			if err := b.reset(ctx); err != nil {
				return fmt.Errorf("%w: reopen engine: %v", types.ErrInitFailed, err)
			}
		} else {
			fresh = false
		}
	}

	raw := rawExec{b}
	if !fresh {
		tables, err := schema.Tables(ctx, raw)
		if err != nil || len(tables) == 0 {
			b.log.Warn().Err(err).Msg("stored image has no tables, recreating schema")
			if err := b.reset(ctx); err != nil {
				return fmt.Errorf("%w: reopen engine: %v", types.ErrInitFailed, err)
			}
			fresh = true
		}
	}

	if err := schema.Create(ctx, raw); err != nil {
		return fmt.Errorf("%w: %v", types.ErrInitFailed, err)
	}
	changed, err := schema.Migrate(ctx, raw, b.opts.Now())
	if err != nil {
		b.log.Warn().Err(err).Msg("schema migration failed")
		if verr := schema.Verify(ctx, raw); verr != nil {
			return fmt.Errorf("%w: %v", types.ErrInitFailed, verr)
		}
	}

	b.mu.Lock()
	b.ready = true
	b.mu.Unlock()

	if fresh || changed {
		_ = b.SaveNow(ctx)
	}
	b.startAutosave()
	b.log.Info().Bool("fresh", fresh).Bool("migrated", changed).Msg("embedded backend ready")
	return nil
}

// reset replaces the engine with an empty in-memory database.
func (b *Backend) reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closeEngineLocked()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return err
	}
	b.db, b.conn, b.inTx = db, conn, false
	return nil
}

func (b *Backend) closeEngineLocked() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	if b.db != nil {
		b.db.Close()
		b.db = nil
	}
}

func (b *Backend) usableLocked() error {
	switch {
	case b.closed:
		return types.ErrClosed
	case !b.ready:
		return types.ErrNotInitialized
	}
	return nil
}

// Execute runs a mutating statement and schedules a debounced save.
func (b *Backend) Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error) {
	b.mu.Lock()
	if err := b.usableLocked(); err != nil {
		b.mu.Unlock()
		return types.ExecResult{}, err
	}
	res, err := sqlutil.Exec(ctx, b.conn, rewritePlaceholders(query), args...)
	if err == nil {
		b.trackTxLocked(query)
	}
	b.mu.Unlock()

	if err != nil {
		b.logFailure(query, args, err)
		return types.ExecResult{}, err
	}
	b.dirty.Store(true)
	b.saver.Schedule()
	return res, nil
}

// Select runs a query.
func (b *Backend) Select(ctx context.Context, query string, args ...any) ([]types.Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.usableLocked(); err != nil {
		return nil, err
	}
	rows, err := sqlutil.Query(ctx, b.conn, rewritePlaceholders(query), args...)
	if err != nil {
		b.logFailure(query, args, err)
		return nil, err
	}
	return rows, nil
}

// trackTxLocked follows explicit transactions so a save never captures a
// half-applied one.
func (b *Backend) trackTxLocked(query string) {
	head := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(head, "BEGIN"):
		b.inTx = true
	case strings.HasPrefix(head, "COMMIT"), strings.HasPrefix(head, "END"), strings.HasPrefix(head, "ROLLBACK"):
		b.inTx = false
	}
}

func (b *Backend) logFailure(query string, args []any, err error) {
	ev := b.log.Debug().Err(err)
	if b.opts.Dev {
		ev = ev.Str("sql", query).Interface("args", args)
	}
	ev.Msg("statement failed")
}

// Flush returns once every mutation issued before the call is in the host
// store: it forces a pending save, awaits one in flight, and otherwise
// saves unconditionally. Save failures are logged, not returned.
func (b *Backend) Flush(ctx context.Context) error {
	b.mu.Lock()
	err := b.usableLocked()
	b.mu.Unlock()
	if err != nil {
		return err
	}

	ran, _ := b.saver.Flush(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ran {
		_ = b.save(ctx)
	}
	return nil
}

// SaveNow serializes and stores the image immediately.
func (b *Backend) SaveNow(ctx context.Context) error {
	return b.save(ctx)
}

// save writes the current image to the host store.
func (b *Backend) save(ctx context.Context) error {
	b.mu.Lock()
	if b.conn == nil || !b.ready {
		b.mu.Unlock()
		return nil
	}
	if b.inTx {
		b.mu.Unlock()
		b.saver.Schedule()
		return nil
	}
	b.dirty.Store(false)
	img, err := b.serializeLocked(ctx)
	b.mu.Unlock()

	if err == nil {
		err = b.opts.KV.Set(ctx, b.opts.Key, img)
	}

	b.statsMu.Lock()
	if err != nil {
		b.stats.Failures++
		b.stats.LastError = err
	} else {
		b.stats.Saves++
		b.stats.LastSize = len(img)
		b.stats.LastSaveAt = b.opts.Now()
		b.stats.LastError = nil
	}
	b.statsMu.Unlock()

	if err != nil {
		b.dirty.Store(true)
		b.log.Warn().Err(err).Str("key", b.opts.Key).Msg("persisting database image failed")
		return err
	}
	b.log.Debug().Int("size", len(img)).Msg("database image saved")
	return nil
}

// Stats returns a copy of the persistence counters.
func (b *Backend) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	return b.stats
}

// Dirty reports whether mutations are not yet in the host store.
func (b *Backend) Dirty() bool { return b.dirty.Load() }

func (b *Backend) startAutosave() {
	if b.opts.AutosaveInterval <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.autosave != nil {
		return
	}
	b.autosave = time.AfterFunc(b.opts.AutosaveInterval, func() {
		if b.dirty.Load() {
			_ = b.save(context.Background())
		}
		b.mu.Lock()
		if b.autosave != nil && !b.closed {
			b.autosave.Reset(b.opts.AutosaveInterval)
		}
		b.mu.Unlock()
	})
}

// Close saves synchronously, stops the timers and releases the engine.
func (b *Backend) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	ready := b.ready
	b.mu.Unlock()

	if ready {
		if err := b.Flush(ctx); err != nil {
			b.log.Warn().Err(err).Msg("final flush failed")
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.autosave != nil {
		b.autosave.Stop()
		b.autosave = nil
	}
	b.saver.Stop()
	b.closeEngineLocked()
	return nil
}

// rawExec runs schema statements during Init without scheduling saves.
type rawExec struct{ b *Backend }

func (r rawExec) Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return sqlutil.Exec(ctx, r.b.conn, rewritePlaceholders(query), args...)
}

func (r rawExec) Select(ctx context.Context, query string, args ...any) ([]types.Row, error) {
	r.b.mu.Lock()
	defer r.b.mu.Unlock()
	return sqlutil.Query(ctx, r.b.conn, rewritePlaceholders(query), args...)
}

var (
	_ types.Backend               = (*Backend)(nil)
	_ types.WorkspaceAccessor     = (*Backend)(nil)
	_ types.FolderAccessor        = (*Backend)(nil)
	_ types.NoteAccessor          = (*Backend)(nil)
	_ types.CalendarEventAccessor = (*Backend)(nil)
	_ types.KanbanAccessor        = (*Backend)(nil)
	_ types.SettingAccessor       = (*Backend)(nil)
	_ types.TableProvider         = (*Backend)(nil)
)
