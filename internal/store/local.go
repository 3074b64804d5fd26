package store

import (
	"context"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// The methods below give the sync engine row-level access that keeps the
// stamps it is handed and records no tombstones of its own.

// Rows lists every entity of store with its stamp.
func (s *Store) Rows(ctx context.Context, store string) ([]types.Entity, error) {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.Rows(ctx, store)
}

// Tombstones lists locally recorded deletions.
func (s *Store) Tombstones(ctx context.Context) ([]types.Tombstone, error) {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return r.Tombstones(ctx)
}

// ApplyUpsert writes a remote entity as-is.
func (s *Store) ApplyUpsert(ctx context.Context, e types.Entity) error {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	return r.ApplyUpsert(ctx, e)
}

// ApplyDelete removes a row deleted remotely.
func (s *Store) ApplyDelete(ctx context.Context, store, key string) error {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	return r.ApplyDelete(ctx, store, key)
}

// ClearTombstones drops tombstones the remote has acknowledged.
func (s *Store) ClearTombstones(ctx context.Context, ts []types.Tombstone) error {
	_, r, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	return r.ClearTombstones(ctx, ts)
}
