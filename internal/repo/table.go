package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// table is the generic keyed-by-store-name view of a Repository. Every
// method routes to the typed operation of its store, so both surfaces
// behave the same.
type table struct {
	r     *Repository
	store string
}

// Table returns the generic Table for store.
func (r *Repository) Table(store string) (types.Table, error) {
	if !types.IsStoreName(store) {
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStore, store)
	}
	return &table{r: r, store: store}, nil
}

func (t *table) Get(ctx context.Context, key string) (any, error) {
	switch t.store {
	case types.StoreWorkspaces:
		return t.r.GetWorkspaceByID(ctx, key)
	case types.StoreFolders:
		return t.r.GetFolderByID(ctx, key)
	case types.StoreNotes:
		return t.r.GetNoteByID(ctx, key)
	case types.StoreCalendarEvents:
		return t.r.GetCalendarEventByID(ctx, key)
	case types.StoreKanban:
		return t.r.GetKanbanByID(ctx, key)
	default:
		return t.r.GetSettingByID(ctx, key)
	}
}

func (t *table) GetAll(ctx context.Context) ([]any, error) {
	switch t.store {
	case types.StoreWorkspaces:
		return boxAll(t.r.GetAllWorkspaces(ctx))
	case types.StoreFolders:
		return boxAll(t.r.GetAllFolders(ctx, ""))
	case types.StoreNotes:
		return boxAll(t.r.GetAllNotes(ctx, ""))
	case types.StoreCalendarEvents:
		return boxAll(t.r.GetAllCalendarEvents(ctx, ""))
	case types.StoreKanban:
		return boxAll(t.r.GetAllKanban(ctx))
	default:
		return boxAll(t.r.GetAllSettings(ctx))
	}
}

// Put accepts a pointer to, or a value of, the store's entity type. A
// pointer receives the assigned ID and stamp.
func (t *table) Put(ctx context.Context, value any) error {
	switch t.store {
	case types.StoreWorkspaces:
		w, err := entityPtr[types.Workspace](value)
		if err != nil {
			return err
		}
		return t.r.PutWorkspace(ctx, w)
	case types.StoreFolders:
		f, err := entityPtr[types.Folder](value)
		if err != nil {
			return err
		}
		return t.r.PutFolder(ctx, f)
	case types.StoreNotes:
		n, err := entityPtr[types.Note](value)
		if err != nil {
			return err
		}
		return t.r.PutNote(ctx, n)
	case types.StoreCalendarEvents:
		e, err := entityPtr[types.CalendarEvent](value)
		if err != nil {
			return err
		}
		return t.r.PutCalendarEvent(ctx, e)
	case types.StoreKanban:
		k, err := entityPtr[types.Kanban](value)
		if err != nil {
			return err
		}
		return t.r.PutKanban(ctx, k)
	default:
		s, err := entityPtr[types.Setting](value)
		if err != nil {
			return err
		}
		return t.r.PutSetting(ctx, s)
	}
}

func (t *table) Remove(ctx context.Context, key string) error {
	switch t.store {
	case types.StoreWorkspaces:
		return t.r.DeleteWorkspace(ctx, key)
	case types.StoreFolders:
		return t.r.DeleteFolder(ctx, key)
	case types.StoreNotes:
		return t.r.DeleteNote(ctx, key)
	case types.StoreCalendarEvents:
		return t.r.DeleteCalendarEvent(ctx, key)
	case types.StoreKanban:
		return t.r.DeleteKanban(ctx, key)
	default:
		return t.r.DeleteSetting(ctx, key)
	}
}

// GetAllByIndex supports workspaceId on folders, notes, calendarEvents and
// kanban; folderId on notes; date on calendarEvents.
func (t *table) GetAllByIndex(ctx context.Context, index, value string) ([]any, error) {
	switch {
	case index == types.IndexWorkspaceID && t.store == types.StoreFolders:
		return boxAll(t.r.GetAllFolders(ctx, value))
	case index == types.IndexWorkspaceID && t.store == types.StoreNotes:
		return boxAll(t.r.GetAllNotes(ctx, value))
	case index == types.IndexFolderID && t.store == types.StoreNotes:
		return boxAll(t.r.GetNotesByFolder(ctx, value))
	case index == types.IndexWorkspaceID && t.store == types.StoreCalendarEvents:
		return boxAll(t.r.GetAllCalendarEvents(ctx, value))
	case index == types.IndexDate && t.store == types.StoreCalendarEvents:
		return boxAll(t.r.GetCalendarEventsByDate(ctx, value))
	case index == types.IndexWorkspaceID && t.store == types.StoreKanban:
		k, err := t.r.GetKanbanByID(ctx, value)
		if errors.Is(err, types.ErrNotFound) {
			return []any{}, nil
		}
		if err != nil {
			return nil, err
		}
		return []any{k}, nil
	default:
		return nil, fmt.Errorf("%w: %s on %s", types.ErrUnknownIndex, index, t.store)
	}
}

// boxAll converts a typed result into pointers held as any.
func boxAll[T any](items []T, err error) ([]any, error) {
	if err != nil {
		return nil, err
	}
	out := make([]any, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out, nil
}

func entityPtr[T any](value any) (*T, error) {
	switch v := value.(type) {
	case *T:
		if v == nil {
			return nil, types.ErrInvalidData
		}
		return v, nil
	case T:
		return &v, nil
	default:
		var zero T
		return nil, fmt.Errorf("%w: expected %T, got %T", types.ErrInvalidData, zero, value)
	}
}
