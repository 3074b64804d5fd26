// Package native is the storage backend reached through a host bridge that
// persists straight to a database file. Every write is durable when it
// returns, so there is no save step.
//
// The backend specializes only the note and setting accessors; the store
// facade serves every other entity through the generic Table surface.
package native

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/internal/repo"
	"github.com/mesh-intelligence/neuronotes/internal/schema"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Options configures a native Backend.
type Options struct {
	Bridge Bridge
	Name   string // database file name; DBNameProd when empty
	Logger zerolog.Logger
	Dev    bool
	Now    func() time.Time
}

// Backend implements types.Backend over a bridge connection.
type Backend struct {
	opts Options
	log  zerolog.Logger
	r    *repo.Repository

	mu     sync.Mutex
	conn   Conn
	closed bool
}

// Open returns an uninitialized Backend; the bridge is not touched until
// Init.
func Open(opts Options) *Backend {
	if opts.Name == "" {
		opts.Name = DBNameProd
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Backend{
		opts: opts,
		log:  opts.Logger.With().Str("backend", types.KindNative).Logger(),
	}
	b.r = repo.New(b, repo.WithLogger(opts.Logger), repo.WithNow(opts.Now))
	return b
}

func (b *Backend) Kind() string { return types.KindNative }

// Repo returns the repository bound to this backend.
func (b *Backend) Repo() *repo.Repository { return b.r }

// Init loads the database file and instantiates the schema. A failing
// create, as after a partial earlier run, is tolerated when introspection
// shows every table present.
func (b *Backend) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return types.ErrClosed
	}
	if b.conn != nil {
		return nil
	}
	if b.opts.Bridge == nil {
		return fmt.Errorf("%w: %v", types.ErrInitFailed, types.ErrBridgeUnavailable)
	}

	conn, err := b.opts.Bridge.Load(ctx, b.opts.Name)
	if err != nil {
		return fmt.Errorf("%w: load %s: %v", types.ErrInitFailed, b.opts.Name, err)
	}

	if err := schema.Create(ctx, conn); err != nil {
		b.log.Warn().Err(err).Msg("schema creation failed, checking existing tables")
		if verr := schema.Verify(ctx, conn); verr != nil {
			conn.Close()
			return fmt.Errorf("%w: %v", types.ErrInitFailed, verr)
		}
	}
	changed, err := schema.Migrate(ctx, conn, b.opts.Now())
	if err != nil {
		b.log.Warn().Err(err).Msg("schema migration failed")
		if verr := schema.Verify(ctx, conn); verr != nil {
			conn.Close()
			return fmt.Errorf("%w: %v", types.ErrInitFailed, verr)
		}
	}

	b.conn = conn
	b.log.Info().Str("db", b.opts.Name).Bool("migrated", changed).Msg("native backend ready")
	return nil
}

func (b *Backend) current() (Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.closed:
		return nil, types.ErrClosed
	case b.conn == nil:
		return nil, types.ErrNotInitialized
	}
	return b.conn, nil
}

func (b *Backend) Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error) {
	conn, err := b.current()
	if err != nil {
		return types.ExecResult{}, err
	}
	res, err := conn.Execute(ctx, query, args...)
	if err != nil {
		b.logFailure(query, args, err)
	}
	return res, err
}

func (b *Backend) Select(ctx context.Context, query string, args ...any) ([]types.Row, error) {
	conn, err := b.current()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Select(ctx, query, args...)
	if err != nil {
		b.logFailure(query, args, err)
	}
	return rows, err
}

func (b *Backend) logFailure(query string, args []any, err error) {
	ev := b.log.Debug().Err(err)
	if b.opts.Dev {
		ev = ev.Str("sql", query).Interface("args", args)
	}
	ev.Msg("statement failed")
}

// Flush is a no-op: writes are durable when Execute returns.
func (b *Backend) Flush(context.Context) error {
	_, err := b.current()
	return err
}

func (b *Backend) Close(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Backend) GetAllNotes(ctx context.Context, workspaceID string) ([]types.Note, error) {
	return b.r.GetAllNotes(ctx, workspaceID)
}

func (b *Backend) GetNoteByID(ctx context.Context, id string) (*types.Note, error) {
	return b.r.GetNoteByID(ctx, id)
}

func (b *Backend) PutNote(ctx context.Context, n *types.Note) error {
	return b.r.PutNote(ctx, n)
}

func (b *Backend) DeleteNote(ctx context.Context, id string) error {
	return b.r.DeleteNote(ctx, id)
}

func (b *Backend) GetAllSettings(ctx context.Context) ([]types.Setting, error) {
	return b.r.GetAllSettings(ctx)
}

func (b *Backend) GetSettingByID(ctx context.Context, key string) (*types.Setting, error) {
	return b.r.GetSettingByID(ctx, key)
}

func (b *Backend) PutSetting(ctx context.Context, s *types.Setting) error {
	return b.r.PutSetting(ctx, s)
}

func (b *Backend) DeleteSetting(ctx context.Context, key string) error {
	return b.r.DeleteSetting(ctx, key)
}

var (
	_ types.Backend         = (*Backend)(nil)
	_ types.NoteAccessor    = (*Backend)(nil)
	_ types.SettingAccessor = (*Backend)(nil)
)
