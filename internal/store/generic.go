package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Table returns the generic surface of store on the session backend. A
// backend that provides its own Table is used directly.
func (s *Store) Table(ctx context.Context, store string) (types.Table, error) {
	b, r, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if tp, ok := b.(types.TableProvider); ok {
		return tp.Table(store)
	}
	return r.Table(store)
}

// Get reads one entity from store.
func (s *Store) Get(ctx context.Context, store, key string) (any, error) {
	t, err := s.Table(ctx, store)
	if err != nil {
		return nil, err
	}
	return t.Get(ctx, key)
}

// GetAll reads every entity of store.
func (s *Store) GetAll(ctx context.Context, store string) ([]any, error) {
	t, err := s.Table(ctx, store)
	if err != nil {
		return nil, err
	}
	return t.GetAll(ctx)
}

// Put writes value into store.
func (s *Store) Put(ctx context.Context, store string, value any) error {
	t, err := s.Table(ctx, store)
	if err != nil {
		return err
	}
	return t.Put(ctx, value)
}

// Remove deletes key from store. Removing the last workspace is refused
// here as on the typed path.
func (s *Store) Remove(ctx context.Context, store, key string) error {
	if store == types.StoreWorkspaces {
		if err := s.guardLastWorkspace(ctx, key); err != nil {
			return err
		}
	}
	t, err := s.Table(ctx, store)
	if err != nil {
		return err
	}
	return t.Remove(ctx, key)
}

// GetAllByIndex reads the entities of store whose index equals value.
func (s *Store) GetAllByIndex(ctx context.Context, store, index, value string) ([]any, error) {
	t, err := s.Table(ctx, store)
	if err != nil {
		return nil, err
	}
	return t.GetAllByIndex(ctx, index, value)
}

// collect narrows generic results to []T.
func collect[T any](items []any, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		v, ok := it.(*T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("%w: expected *%T, got %T", types.ErrInvalidData, zero, it)
		}
		out = append(out, *v)
	}
	return out, nil
}

// one narrows a generic result to *T.
func one[T any](item any, err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	v, ok := item.(*T)
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: expected *%T, got %T", types.ErrInvalidData, zero, item)
	}
	return v, nil
}

// scoped reads store filtered by the workspace index, or all of it when
// workspaceID is empty.
func (s *Store) scoped(ctx context.Context, store, workspaceID string) ([]any, error) {
	if workspaceID == "" {
		return s.GetAll(ctx, store)
	}
	return s.GetAllByIndex(ctx, store, types.IndexWorkspaceID, workspaceID)
}
