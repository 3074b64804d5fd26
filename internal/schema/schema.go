// Package schema defines the canonical table layout shared by every backend:
// creation, introspection, column migrations and the hosted Postgres DDL.
package schema

import (
	"context"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Executor is the SQL surface schema operations need. Backends and native
// bridge connections both satisfy it.
type Executor interface {
	Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error)
	Select(ctx context.Context, query string, args ...any) ([]types.Row, error)
}

// TombstoneTable records local deletions for sync. It is bookkeeping, not an
// entity store.
const TombstoneTable = "sync_tombstones"

// Table DDL. "order" is a reserved word and is always quoted. Columns added
// by later releases are nullable so the fresh layout equals the migrated one.
const (
	createWorkspaces = `CREATE TABLE IF NOT EXISTS workspaces (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    "order" INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER
);`

	createFolders = `CREATE TABLE IF NOT EXISTS folders (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    workspace_id TEXT NOT NULL,
    "order" INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER
);`

	createNotes = `CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    content_html TEXT,
    updated_at INTEGER NOT NULL,
    workspace_id TEXT NOT NULL,
    folder_id TEXT,
    "order" INTEGER NOT NULL DEFAULT 0,
    type TEXT NOT NULL DEFAULT 'text',
    spreadsheet TEXT
);`

	createCalendarEvents = `CREATE TABLE IF NOT EXISTS calendarEvents (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    title TEXT NOT NULL,
    time TEXT,
    workspace_id TEXT NOT NULL,
    repeat TEXT,
    repeat_on TEXT,
    repeat_end TEXT,
    exceptions TEXT,
    color TEXT,
    updated_at INTEGER
);`

	createKanban = `CREATE TABLE IF NOT EXISTS kanban (
    workspace_id TEXT PRIMARY KEY,
    columns TEXT NOT NULL,
    updated_at INTEGER
);`

	createSettings = `CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT,
    updated_at INTEGER
);`

	createTombstones = `CREATE TABLE IF NOT EXISTS sync_tombstones (
    store TEXT NOT NULL,
    id TEXT NOT NULL,
    deleted_at INTEGER NOT NULL,
    PRIMARY KEY (store, id)
);`
)

// Index DDL for the indexed queries of the repository.
const (
	idxFoldersWorkspace = `CREATE INDEX IF NOT EXISTS idx_folders_workspace ON folders(workspace_id);`
	idxNotesWorkspace   = `CREATE INDEX IF NOT EXISTS idx_notes_workspace ON notes(workspace_id);`
	idxNotesFolder      = `CREATE INDEX IF NOT EXISTS idx_notes_folder ON notes(folder_id);`
	idxEventsWorkspace  = `CREATE INDEX IF NOT EXISTS idx_events_workspace ON calendarEvents(workspace_id);`
	idxEventsDate       = `CREATE INDEX IF NOT EXISTS idx_events_date ON calendarEvents(date);`
)

// tableDDL lists CREATE TABLE statements, parents first.
var tableDDL = []string{
	createWorkspaces,
	createFolders,
	createNotes,
	createCalendarEvents,
	createKanban,
	createSettings,
	createTombstones,
}

var indexDDL = []string{
	idxFoldersWorkspace,
	idxNotesWorkspace,
	idxNotesFolder,
	idxEventsWorkspace,
	idxEventsDate,
}

// Column is one column of the canonical layout that may be missing from a
// store created by an earlier release.
type Column struct {
	Name string
	Def  string
	// Backfill, when set, is applied to existing rows after the column is
	// added. It takes the current time in Unix ms as $1.
	Backfill string
}

// migratable lists, per table, the columns introduced after the first
// release, in the order they were introduced.
var migratable = map[string][]Column{
	types.StoreWorkspaces: {
		{Name: "updated_at", Def: "INTEGER", Backfill: `UPDATE workspaces SET updated_at = $1 WHERE updated_at IS NULL`},
	},
	types.StoreFolders: {
		{Name: "updated_at", Def: "INTEGER", Backfill: `UPDATE folders SET updated_at = $1 WHERE updated_at IS NULL`},
	},
	types.StoreNotes: {
		{Name: "type", Def: "TEXT NOT NULL DEFAULT 'text'"},
		{Name: "spreadsheet", Def: "TEXT"},
	},
	types.StoreCalendarEvents: {
		{Name: "repeat", Def: "TEXT"},
		{Name: "repeat_on", Def: "TEXT"},
		{Name: "repeat_end", Def: "TEXT"},
		{Name: "exceptions", Def: "TEXT"},
		{Name: "color", Def: "TEXT"},
		{Name: "updated_at", Def: "INTEGER", Backfill: `UPDATE calendarEvents SET updated_at = $1 WHERE updated_at IS NULL`},
	},
	types.StoreKanban: {
		{Name: "updated_at", Def: "INTEGER", Backfill: `UPDATE kanban SET updated_at = $1 WHERE updated_at IS NULL`},
	},
	types.StoreSettings: {
		{Name: "updated_at", Def: "INTEGER", Backfill: `UPDATE settings SET updated_at = $1 WHERE updated_at IS NULL`},
	},
}
