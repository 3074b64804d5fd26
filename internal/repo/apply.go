package repo

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// StoreOf returns the store an entity belongs to.
func StoreOf(e types.Entity) (string, error) {
	switch e.(type) {
	case *types.Workspace:
		return types.StoreWorkspaces, nil
	case *types.Folder:
		return types.StoreFolders, nil
	case *types.Note:
		return types.StoreNotes, nil
	case *types.CalendarEvent:
		return types.StoreCalendarEvents, nil
	case *types.Kanban:
		return types.StoreKanban, nil
	case *types.Setting:
		return types.StoreSettings, nil
	default:
		return "", fmt.Errorf("%w: %T", types.ErrInvalidData, e)
	}
}

// Rows lists every entity of store with its stamp, for sync.
func (r *Repository) Rows(ctx context.Context, store string) ([]types.Entity, error) {
	t, err := r.Table(store)
	if err != nil {
		return nil, err
	}
	items, err := t.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.Entity, len(items))
	for i, it := range items {
		out[i] = it.(types.Entity)
	}
	return out, nil
}

// ApplyUpsert writes a row received from the remote store verbatim: its
// stamp is kept and no content preservation applies.
func (r *Repository) ApplyUpsert(ctx context.Context, e types.Entity) error {
	store, err := StoreOf(e)
	if err != nil {
		return err
	}
	if err := normalizeEntity(e); err != nil {
		return err
	}
	r.clock.Observe(e.Stamp())
	if err := r.write(ctx, store, e); err != nil {
		return err
	}
	return r.unbury(ctx, store, e.PrimaryKey())
}

// ApplyDelete removes a row deleted remotely, cascading like a local delete
// but without recording tombstones.
func (r *Repository) ApplyDelete(ctx context.Context, store, key string) error {
	switch store {
	case types.StoreWorkspaces:
		return r.inTx(ctx, func() error { return r.cascadeWorkspace(ctx, key, false, 0) })
	case types.StoreFolders:
		return r.inTx(ctx, func() error { return r.cascadeFolder(ctx, key, false, 0) })
	default:
		if !types.IsStoreName(store) {
			return fmt.Errorf("%w: %q", types.ErrUnknownStore, store)
		}
		return r.removeWhere(ctx, store, keyColumn(store), key, false, 0)
	}
}

func normalizeEntity(e types.Entity) error {
	switch v := e.(type) {
	case *types.Workspace:
		if v.ID == "" {
			return types.ErrInvalidID
		}
	case *types.Folder:
		if v.ID == "" || v.WorkspaceID == "" {
			return types.ErrInvalidData
		}
	case *types.Note:
		if v.ID == "" {
			return types.ErrInvalidID
		}
		return normalizeNote(v)
	case *types.CalendarEvent:
		if v.ID == "" {
			return types.ErrInvalidID
		}
		return normalizeEvent(v)
	case *types.Kanban:
		if v.WorkspaceID == "" {
			return types.ErrInvalidID
		}
		v.Columns = nilIfEmpty(v.Columns)
	case *types.Setting:
		return validateSetting(v)
	}
	return nil
}

func (r *Repository) write(ctx context.Context, store string, e types.Entity) error {
	switch v := e.(type) {
	case *types.Workspace:
		return r.writeWorkspace(ctx, v)
	case *types.Folder:
		return r.writeFolder(ctx, v)
	case *types.Note:
		return r.writeNote(ctx, v, false)
	case *types.CalendarEvent:
		return r.writeCalendarEvent(ctx, v)
	case *types.Kanban:
		return r.writeKanban(ctx, v)
	case *types.Setting:
		return r.writeSetting(ctx, v)
	default:
		return fmt.Errorf("%w: %T in %s", types.ErrInvalidData, e, store)
	}
}

func setStamp(e types.Entity, ts int64) {
	switch v := e.(type) {
	case *types.Workspace:
		v.UpdatedAt = ts
	case *types.Folder:
		v.UpdatedAt = ts
	case *types.Note:
		v.UpdatedAt = ts
	case *types.CalendarEvent:
		v.UpdatedAt = ts
	case *types.Kanban:
		v.UpdatedAt = ts
	case *types.Setting:
		v.UpdatedAt = ts
	}
}
