// Package repo implements the typed repository surface over any SQL backend:
// per-entity CRUD and indexed queries, the note content preservation rule,
// explicit cascades, delete tombstones for sync, and the generic Table view
// keyed by store name.
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Executor is the SQL surface a Repository runs on.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error)
	Select(ctx context.Context, query string, args ...any) ([]types.Row, error)
}

// Repository maps entities to rows on one Executor.
type Repository struct {
	exec  Executor
	log   zerolog.Logger
	clock *Clock
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger used for decode fallbacks.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Repository) { r.log = l.With().Str("component", "repo").Logger() }
}

// WithNow replaces the wall clock behind modification stamps.
func WithNow(now func() time.Time) Option {
	return func(r *Repository) { r.clock = NewClock(now) }
}

// New returns a Repository on exec.
func New(exec Executor, opts ...Option) *Repository {
	r := &Repository{exec: exec, log: zerolog.Nop(), clock: NewClock(time.Now)}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Clock returns the stamp source.
func (r *Repository) Clock() *Clock { return r.clock }

// Prepare seeds the clock from the newest stamp already stored so stamps
// keep advancing across restarts even if the wall clock went backwards.
func (r *Repository) Prepare(ctx context.Context) error {
	for _, store := range types.StoreNames {
		if err := r.observeMax(ctx, fmt.Sprintf(`SELECT MAX(updated_at) AS m FROM "%s"`, store)); err != nil {
			return err
		}
	}
	return r.observeMax(ctx, `SELECT MAX(deleted_at) AS m FROM sync_tombstones`)
}

func (r *Repository) observeMax(ctx context.Context, q string) error {
	rows, err := r.exec.Select(ctx, q)
	if err != nil {
		return fmt.Errorf("read newest stamp: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	rr := newReader("", rows[0])
	r.clock.Observe(rr.integer("m"))
	return rr.err
}

// inTx runs fn between BEGIN and COMMIT, rolling back on error. Backends
// run every statement on one connection, so plain statements suffice.
func (r *Repository) inTx(ctx context.Context, fn func() error) error {
	if _, err := r.exec.Execute(ctx, "BEGIN"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := r.exec.Execute(ctx, "ROLLBACK"); rbErr != nil {
			r.log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if _, err := r.exec.Execute(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
