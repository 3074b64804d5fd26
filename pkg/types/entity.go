package types

// Entity is implemented by pointers to every stored entity type. PrimaryKey
// is the key within its store; Stamp is the modification timestamp in Unix
// milliseconds, advanced on every local mutation.
type Entity interface {
	PrimaryKey() string
	Stamp() int64
}

// Tombstone records a local delete that has not yet been pushed to the
// remote store.
type Tombstone struct {
	Store     string `json:"store"`
	ID        string `json:"id"`
	DeletedAt int64  `json:"deletedAt"`
}

var (
	_ Entity = (*Workspace)(nil)
	_ Entity = (*Folder)(nil)
	_ Entity = (*Note)(nil)
	_ Entity = (*CalendarEvent)(nil)
	_ Entity = (*Kanban)(nil)
	_ Entity = (*Setting)(nil)
)

// Workspace is the top-level partition of all other data.
type Workspace struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Order     int    `json:"order"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

func (w *Workspace) PrimaryKey() string { return w.ID }
func (w *Workspace) Stamp() int64       { return w.UpdatedAt }

// Folder belongs to exactly one workspace. Folders do not nest.
type Folder struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	WorkspaceID string `json:"workspaceId"`
	Order       int    `json:"order"`
	UpdatedAt   int64  `json:"updatedAt,omitempty"`
}

func (f *Folder) PrimaryKey() string { return f.ID }
func (f *Folder) Stamp() int64       { return f.UpdatedAt }

// Dataset holds every entity of every workspace. It is the data section of a
// backup document and the unit of a full restore.
type Dataset struct {
	Workspaces     []Workspace     `json:"workspaces"`
	Folders        []Folder        `json:"folders"`
	Notes          []Note          `json:"notes"`
	CalendarEvents []CalendarEvent `json:"calendarEvents"`
	Kanban         []Kanban        `json:"kanban"`
	Settings       []Setting       `json:"settings"`
}

// Len returns the total number of entities.
func (d *Dataset) Len() int {
	return len(d.Workspaces) + len(d.Folders) + len(d.Notes) +
		len(d.CalendarEvents) + len(d.Kanban) + len(d.Settings)
}
