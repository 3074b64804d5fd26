// Package store is the facade the application talks to. A Store is created
// once at startup and holds the session's backend: it probes the host, builds
// the matching backend lazily on first use, and routes every operation to a
// backend-specific accessor when one exists or to the generic Table of the
// store otherwise.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/internal/repo"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Factory builds an uninitialized backend.
type Factory func(ctx context.Context) (types.Backend, error)

// Options configures a Store.
type Options struct {
	Probe    Probe
	Embedded Factory
	Native   Factory
	Logger   zerolog.Logger
}

// repoProvider is implemented by backends that carry their own Repository.
type repoProvider interface {
	Repo() *repo.Repository
}

// Store is the session's storage context.
type Store struct {
	opts Options
	log  zerolog.Logger

	mu      sync.Mutex
	backend types.Backend
	repo    *repo.Repository
}

// New returns a Store. No backend is built until the first operation.
func New(opts Options) *Store {
	if opts.Probe == nil {
		opts.Probe = EnvProbe{}
	}
	return &Store{opts: opts, log: opts.Logger.With().Str("component", "store").Logger()}
}

// Init resolves the backend eagerly. Resolution seeds a default workspace
// into an empty store, so every entry point sees at least one.
func (s *Store) Init(ctx context.Context) error {
	_, _, err := s.resolve(ctx)
	return err
}

// seed creates the default workspace when r has none.
func (s *Store) seed(ctx context.Context, r *repo.Repository) error {
	w, created, err := r.SeedWorkspace(ctx)
	if err != nil {
		return fmt.Errorf("seed workspace: %w", err)
	}
	if created {
		s.log.Info().Str("workspace", w.ID).Msg("seeded default workspace")
	}
	return nil
}

// resolve returns the session backend, building it on first use. The probe
// is consulted on every attempt until a backend is up; once the native
// backend is up, its bridge is re-validated before each call.
func (s *Store) resolve(ctx context.Context) (types.Backend, *repo.Repository, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.backend != nil {
		if s.backend.Kind() == types.KindNative && !s.opts.Probe.Native() {
			return nil, nil, types.ErrBridgeUnavailable
		}
		return s.backend, s.repo, nil
	}

	kind, factory := types.KindEmbedded, s.opts.Embedded
	if s.opts.Probe.Native() {
		kind, factory = types.KindNative, s.opts.Native
	}
	if factory == nil {
		return nil, nil, fmt.Errorf("%w: no %s backend configured", types.ErrInitFailed, kind)
	}

	b, err := factory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: build %s backend: %v", types.ErrInitFailed, kind, err)
	}
	if err := b.Init(ctx); err != nil {
		_ = b.Close(ctx)
		return nil, nil, err
	}

	var r *repo.Repository
	if rp, ok := b.(repoProvider); ok {
		r = rp.Repo()
	} else {
		r = repo.New(b, repo.WithLogger(s.opts.Logger))
	}
	if err := r.Prepare(ctx); err != nil {
		_ = b.Close(ctx)
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInitFailed, err)
	}
	if err := s.seed(ctx, r); err != nil {
		_ = b.Close(ctx)
		return nil, nil, fmt.Errorf("%w: %v", types.ErrInitFailed, err)
	}

	s.backend, s.repo = b, r
	s.log.Info().Str("backend", kind).Msg("storage backend resolved")
	return b, r, nil
}

// Kind names the resolved backend, or "" before resolution.
func (s *Store) Kind() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return ""
	}
	return s.backend.Kind()
}

// Backend returns the resolved backend, resolving it if needed.
func (s *Store) Backend(ctx context.Context) (types.Backend, error) {
	b, _, err := s.resolve(ctx)
	return b, err
}

// Flush makes every prior mutation durable.
func (s *Store) Flush(ctx context.Context) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	return b.Flush(ctx)
}

// Close releases the backend. A Store that never resolved one has nothing
// to do.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	err := s.backend.Close(ctx)
	s.backend, s.repo = nil, nil
	return err
}

// ActiveWorkspace returns the active workspace id, falling back to the
// first workspace when none is recorded or the recorded one is gone.
func (s *Store) ActiveWorkspace(ctx context.Context) (string, error) {
	setting, err := s.GetSettingByID(ctx, repo.SettingActiveWorkspace)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return "", err
	}
	if setting != nil {
		var id string
		if json.Unmarshal(setting.Value, &id) == nil && id != "" {
			if _, err := s.GetWorkspaceByID(ctx, id); err == nil {
				return id, nil
			}
		}
	}
	all, err := s.GetAllWorkspaces(ctx)
	if err != nil {
		return "", err
	}
	if len(all) == 0 {
		return "", types.ErrNotFound
	}
	return all[0].ID, nil
}

// SetActiveWorkspace records id as active and flushes, so the switch is
// durable before the caller moves on.
func (s *Store) SetActiveWorkspace(ctx context.Context, id string) error {
	if _, err := s.GetWorkspaceByID(ctx, id); err != nil {
		return err
	}
	value, _ := json.Marshal(id)
	if err := s.PutSetting(ctx, &types.Setting{Key: repo.SettingActiveWorkspace, Value: value}); err != nil {
		return err
	}
	return s.Flush(ctx)
}

// ListNoteSummaries lists notes without their payload.
func (s *Store) ListNoteSummaries(ctx context.Context, workspaceID string) ([]types.Note, error) {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.ListNoteSummaries(ctx, workspaceID)
}

// Snapshot reads the whole data set.
func (s *Store) Snapshot(ctx context.Context) (*types.Dataset, error) {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.Snapshot(ctx)
}

// ReplaceAll swaps the whole data set for d and flushes. A data set without
// workspaces gets the default one, as an empty store does.
func (s *Store) ReplaceAll(ctx context.Context, d *types.Dataset) error {
	b, r, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if err := r.ReplaceAll(ctx, d); err != nil {
		return err
	}
	if err := s.seed(ctx, r); err != nil {
		return err
	}
	return b.Flush(ctx)
}
