package types

import "encoding/json"

// Kanban is the single board of a workspace.
type Kanban struct {
	WorkspaceID string         `json:"workspaceId"`
	Columns     []KanbanColumn `json:"columns"`
	UpdatedAt   int64          `json:"updatedAt,omitempty"`
}

func (k *Kanban) PrimaryKey() string { return k.WorkspaceID }
func (k *Kanban) Stamp() int64       { return k.UpdatedAt }

// KanbanColumn is an ordered list of tasks.
type KanbanColumn struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Tasks       []KanbanTask `json:"tasks"`
	IsCollapsed bool         `json:"isCollapsed"`
}

// KanbanTask is one card on the board.
type KanbanTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Setting is a configuration value. Per-workspace settings carry the
// workspace id as a ":<workspaceId>" key suffix.
type Setting struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt int64           `json:"updatedAt,omitempty"`
}

func (s *Setting) PrimaryKey() string { return s.Key }
func (s *Setting) Stamp() int64       { return s.UpdatedAt }
