// Package remotesync reconciles the local store with a hosted copy of the
// same data, row by row, by last-writer-wins on the modification stamp.
package remotesync

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Local is the storage side of a sync. The store facade satisfies it.
type Local interface {
	Rows(ctx context.Context, store string) ([]types.Entity, error)
	Tombstones(ctx context.Context) ([]types.Tombstone, error)
	ApplyUpsert(ctx context.Context, e types.Entity) error
	ApplyDelete(ctx context.Context, store, key string) error
	ClearTombstones(ctx context.Context, ts []types.Tombstone) error
}

// Remote is the hosted side of a sync, already scoped to one user.
// Upsert and Delete may fail for some rows only; they report that with a
// *PartialError and apply the rest.
type Remote interface {
	Fetch(ctx context.Context, store string) ([]types.Entity, error)
	Upsert(ctx context.Context, store string, rows []types.Entity) error
	Delete(ctx context.Context, store string, keys []string) error
}

// RowError is one row that could not be synced.
type RowError struct {
	Store string
	ID    string
	Op    string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Store, e.ID, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// PartialError collects row failures of an otherwise applied batch.
type PartialError struct {
	Rows []RowError
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Rows))
	for i := range e.Rows {
		parts = append(parts, e.Rows[i].Error())
	}
	return fmt.Sprintf("%d rows failed: %s", len(e.Rows), strings.Join(parts, "; "))
}

// newEntity returns a zero entity of store.
func newEntity(store string) (types.Entity, error) {
	switch store {
	case types.StoreWorkspaces:
		return &types.Workspace{}, nil
	case types.StoreFolders:
		return &types.Folder{}, nil
	case types.StoreNotes:
		return &types.Note{}, nil
	case types.StoreCalendarEvents:
		return &types.CalendarEvent{}, nil
	case types.StoreKanban:
		return &types.Kanban{}, nil
	case types.StoreSettings:
		return &types.Setting{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, store)
	}
}

// decodeEntity decodes raw JSON into a fresh entity of store.
func decodeEntity(store string, raw []byte) (types.Entity, error) {
	e, err := newEntity(store)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

// workspaceOf returns the owning workspace of e, or "" for workspaces and
// settings.
func workspaceOf(e types.Entity) string {
	switch v := e.(type) {
	case *types.Folder:
		return v.WorkspaceID
	case *types.Note:
		return v.WorkspaceID
	case *types.CalendarEvent:
		return v.WorkspaceID
	case *types.Kanban:
		return v.WorkspaceID
	}
	return ""
}
