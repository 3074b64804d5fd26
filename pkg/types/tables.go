package types

// Store names accepted by the generic Table surface. They double as the
// top-level keys of a backup document's data section.
const (
	StoreWorkspaces     = "workspaces"
	StoreFolders        = "folders"
	StoreNotes          = "notes"
	StoreCalendarEvents = "calendarEvents"
	StoreKanban         = "kanban"
	StoreSettings       = "settings"
)

// StoreNames lists all store names in parent-before-child order. Writers that
// must respect foreign keys iterate forward; deleters iterate backward.
var StoreNames = []string{
	StoreWorkspaces,
	StoreFolders,
	StoreNotes,
	StoreCalendarEvents,
	StoreKanban,
	StoreSettings,
}

// IsStoreName reports whether name is one of the six store names.
func IsStoreName(name string) bool {
	for _, n := range StoreNames {
		if n == name {
			return true
		}
	}
	return false
}

// Index names accepted by Table.GetAllByIndex.
const (
	IndexWorkspaceID = "workspaceId"
	IndexFolderID    = "folderId"
	IndexDate        = "date"
)
