package store

import (
	"context"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Each entity operation uses the backend's specialized accessor when it has
// one and the generic Table of the store otherwise.

func (s *Store) GetAllWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.WorkspaceAccessor); ok {
		return a.GetAllWorkspaces(ctx)
	}
	return collect[types.Workspace](s.GetAll(ctx, types.StoreWorkspaces))
}

func (s *Store) GetWorkspaceByID(ctx context.Context, id string) (*types.Workspace, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.WorkspaceAccessor); ok {
		return a.GetWorkspaceByID(ctx, id)
	}
	return one[types.Workspace](s.Get(ctx, types.StoreWorkspaces, id))
}

func (s *Store) PutWorkspace(ctx context.Context, w *types.Workspace) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.WorkspaceAccessor); ok {
		return a.PutWorkspace(ctx, w)
	}
	return s.Put(ctx, types.StoreWorkspaces, w)
}

// DeleteWorkspace removes a workspace with everything it owns. The last
// remaining workspace cannot be deleted.
func (s *Store) DeleteWorkspace(ctx context.Context, id string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	a, ok := b.(types.WorkspaceAccessor)
	if !ok {
		return s.Remove(ctx, types.StoreWorkspaces, id)
	}
	if err := s.guardLastWorkspace(ctx, id); err != nil {
		return err
	}
	return a.DeleteWorkspace(ctx, id)
}

// guardLastWorkspace refuses to remove id when it is the only workspace.
func (s *Store) guardLastWorkspace(ctx context.Context, id string) error {
	all, err := s.GetAllWorkspaces(ctx)
	if err != nil {
		return err
	}
	if len(all) == 1 && all[0].ID == id {
		return types.ErrLastWorkspace
	}
	return nil
}

func (s *Store) GetAllFolders(ctx context.Context, workspaceID string) ([]types.Folder, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.FolderAccessor); ok {
		return a.GetAllFolders(ctx, workspaceID)
	}
	return collect[types.Folder](s.scoped(ctx, types.StoreFolders, workspaceID))
}

func (s *Store) GetFolderByID(ctx context.Context, id string) (*types.Folder, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.FolderAccessor); ok {
		return a.GetFolderByID(ctx, id)
	}
	return one[types.Folder](s.Get(ctx, types.StoreFolders, id))
}

func (s *Store) PutFolder(ctx context.Context, f *types.Folder) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.FolderAccessor); ok {
		return a.PutFolder(ctx, f)
	}
	return s.Put(ctx, types.StoreFolders, f)
}

func (s *Store) DeleteFolder(ctx context.Context, id string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.FolderAccessor); ok {
		return a.DeleteFolder(ctx, id)
	}
	return s.Remove(ctx, types.StoreFolders, id)
}

func (s *Store) GetAllNotes(ctx context.Context, workspaceID string) ([]types.Note, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.NoteAccessor); ok {
		return a.GetAllNotes(ctx, workspaceID)
	}
	return collect[types.Note](s.scoped(ctx, types.StoreNotes, workspaceID))
}

func (s *Store) GetNoteByID(ctx context.Context, id string) (*types.Note, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.NoteAccessor); ok {
		return a.GetNoteByID(ctx, id)
	}
	return one[types.Note](s.Get(ctx, types.StoreNotes, id))
}

func (s *Store) PutNote(ctx context.Context, n *types.Note) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.NoteAccessor); ok {
		return a.PutNote(ctx, n)
	}
	return s.Put(ctx, types.StoreNotes, n)
}

func (s *Store) DeleteNote(ctx context.Context, id string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.NoteAccessor); ok {
		return a.DeleteNote(ctx, id)
	}
	return s.Remove(ctx, types.StoreNotes, id)
}

func (s *Store) GetAllCalendarEvents(ctx context.Context, workspaceID string) ([]types.CalendarEvent, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.CalendarEventAccessor); ok {
		return a.GetAllCalendarEvents(ctx, workspaceID)
	}
	return collect[types.CalendarEvent](s.scoped(ctx, types.StoreCalendarEvents, workspaceID))
}

func (s *Store) GetCalendarEventByID(ctx context.Context, id string) (*types.CalendarEvent, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.CalendarEventAccessor); ok {
		return a.GetCalendarEventByID(ctx, id)
	}
	return one[types.CalendarEvent](s.Get(ctx, types.StoreCalendarEvents, id))
}

func (s *Store) PutCalendarEvent(ctx context.Context, e *types.CalendarEvent) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.CalendarEventAccessor); ok {
		return a.PutCalendarEvent(ctx, e)
	}
	return s.Put(ctx, types.StoreCalendarEvents, e)
}

func (s *Store) DeleteCalendarEvent(ctx context.Context, id string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.CalendarEventAccessor); ok {
		return a.DeleteCalendarEvent(ctx, id)
	}
	return s.Remove(ctx, types.StoreCalendarEvents, id)
}

// GetCalendarEventsByDate lists events whose start date is date.
func (s *Store) GetCalendarEventsByDate(ctx context.Context, date string) ([]types.CalendarEvent, error) {
	return collect[types.CalendarEvent](s.GetAllByIndex(ctx, types.StoreCalendarEvents, types.IndexDate, date))
}

func (s *Store) GetAllKanban(ctx context.Context) ([]types.Kanban, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.KanbanAccessor); ok {
		return a.GetAllKanban(ctx)
	}
	return collect[types.Kanban](s.GetAll(ctx, types.StoreKanban))
}

func (s *Store) GetKanbanByID(ctx context.Context, workspaceID string) (*types.Kanban, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.KanbanAccessor); ok {
		return a.GetKanbanByID(ctx, workspaceID)
	}
	return one[types.Kanban](s.Get(ctx, types.StoreKanban, workspaceID))
}

func (s *Store) PutKanban(ctx context.Context, k *types.Kanban) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.KanbanAccessor); ok {
		return a.PutKanban(ctx, k)
	}
	return s.Put(ctx, types.StoreKanban, k)
}

func (s *Store) DeleteKanban(ctx context.Context, workspaceID string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.KanbanAccessor); ok {
		return a.DeleteKanban(ctx, workspaceID)
	}
	return s.Remove(ctx, types.StoreKanban, workspaceID)
}

func (s *Store) GetAllSettings(ctx context.Context) ([]types.Setting, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.SettingAccessor); ok {
		return a.GetAllSettings(ctx)
	}
	return collect[types.Setting](s.GetAll(ctx, types.StoreSettings))
}

func (s *Store) GetSettingByID(ctx context.Context, key string) (*types.Setting, error) {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if a, ok := b.(types.SettingAccessor); ok {
		return a.GetSettingByID(ctx, key)
	}
	return one[types.Setting](s.Get(ctx, types.StoreSettings, key))
}

func (s *Store) PutSetting(ctx context.Context, st *types.Setting) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.SettingAccessor); ok {
		return a.PutSetting(ctx, st)
	}
	return s.Put(ctx, types.StoreSettings, st)
}

func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	b, _, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	if a, ok := b.(types.SettingAccessor); ok {
		return a.DeleteSetting(ctx, key)
	}
	return s.Remove(ctx, types.StoreSettings, key)
}
