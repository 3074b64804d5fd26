package types

import "context"

// Specialized accessors. A backend may implement any subset of these; the
// store facade uses a specialized accessor when present and otherwise falls
// through to the generic Table of the same store. Both paths must behave
// identically.

// TableProvider exposes the generic Table surface for a store name.
type TableProvider interface {
	Table(store string) (Table, error)
}

type WorkspaceAccessor interface {
	GetAllWorkspaces(ctx context.Context) ([]Workspace, error)
	GetWorkspaceByID(ctx context.Context, id string) (*Workspace, error)
	PutWorkspace(ctx context.Context, w *Workspace) error
	DeleteWorkspace(ctx context.Context, id string) error
}

type FolderAccessor interface {
	GetAllFolders(ctx context.Context, workspaceID string) ([]Folder, error)
	GetFolderByID(ctx context.Context, id string) (*Folder, error)
	PutFolder(ctx context.Context, f *Folder) error
	DeleteFolder(ctx context.Context, id string) error
}

type NoteAccessor interface {
	GetAllNotes(ctx context.Context, workspaceID string) ([]Note, error)
	GetNoteByID(ctx context.Context, id string) (*Note, error)
	PutNote(ctx context.Context, n *Note) error
	DeleteNote(ctx context.Context, id string) error
}

type CalendarEventAccessor interface {
	GetAllCalendarEvents(ctx context.Context, workspaceID string) ([]CalendarEvent, error)
	GetCalendarEventByID(ctx context.Context, id string) (*CalendarEvent, error)
	PutCalendarEvent(ctx context.Context, e *CalendarEvent) error
	DeleteCalendarEvent(ctx context.Context, id string) error
}

type KanbanAccessor interface {
	GetAllKanban(ctx context.Context) ([]Kanban, error)
	GetKanbanByID(ctx context.Context, workspaceID string) (*Kanban, error)
	PutKanban(ctx context.Context, k *Kanban) error
	DeleteKanban(ctx context.Context, workspaceID string) error
}

type SettingAccessor interface {
	GetAllSettings(ctx context.Context) ([]Setting, error)
	GetSettingByID(ctx context.Context, key string) (*Setting, error)
	PutSetting(ctx context.Context, s *Setting) error
	DeleteSetting(ctx context.Context, key string) error
}
