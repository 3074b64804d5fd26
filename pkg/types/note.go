package types

import (
	"encoding/json"
	"fmt"
)

// Note types. The type is fixed at creation and selects which payload field
// is authoritative.
const (
	NoteTypeText        = "text"
	NoteTypeSpreadsheet = "spreadsheet"
)

// ValidNoteType reports whether t is a known note type.
func ValidNoteType(t string) bool {
	return t == NoteTypeText || t == NoteTypeSpreadsheet
}

// ContentState tells a write whether the caller ever loaded the note body.
// An empty payload written with anything other than ContentLoaded keeps the
// stored body; with ContentLoaded the empty payload is persisted.
type ContentState int

const (
	ContentUnknown ContentState = iota
	ContentNotLoaded
	ContentLoaded
)

// MarshalJSON encodes the state as the boolean _contentLoaded marker.
func (s ContentState) MarshalJSON() ([]byte, error) {
	switch s {
	case ContentLoaded:
		return []byte("true"), nil
	case ContentNotLoaded:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false, or null.
func (s *ContentState) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("content state: %w", err)
	}
	switch {
	case b == nil:
		*s = ContentUnknown
	case *b:
		*s = ContentLoaded
	default:
		*s = ContentNotLoaded
	}
	return nil
}

// Note is a text or spreadsheet document inside a workspace, optionally
// filed in a folder.
type Note struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	ContentHTML  string       `json:"contentHTML"`
	Spreadsheet  *Spreadsheet `json:"spreadsheet,omitempty"`
	UpdatedAt    int64        `json:"updatedAt"`
	WorkspaceID  string       `json:"workspaceId"`
	FolderID     *string      `json:"folderId"`
	Order        int          `json:"order"`
	Type         string       `json:"type"`
	ContentState ContentState `json:"_contentLoaded,omitempty"`
}

func (n *Note) PrimaryKey() string { return n.ID }
func (n *Note) Stamp() int64       { return n.UpdatedAt }

// PayloadEmpty reports whether the payload selected by the note type is empty.
func (n *Note) PayloadEmpty() bool {
	if n.Type == NoteTypeSpreadsheet {
		return n.Spreadsheet == nil
	}
	return n.ContentHTML == ""
}

// Spreadsheet is a 2D grid of styled cells with merge spans and per-row and
// per-column sizing.
type Spreadsheet struct {
	Cells      [][]Cell    `json:"cells"`
	Merges     []Merge     `json:"merges,omitempty"`
	RowHeights map[int]int `json:"rowHeights,omitempty"`
	ColWidths  map[int]int `json:"colWidths,omitempty"`
}

// Cell is one spreadsheet cell.
type Cell struct {
	Value string     `json:"value"`
	Style *CellStyle `json:"style,omitempty"`
}

// CellStyle carries optional cell formatting.
type CellStyle struct {
	Bold       bool   `json:"bold,omitempty"`
	Italic     bool   `json:"italic,omitempty"`
	Underline  bool   `json:"underline,omitempty"`
	Color      string `json:"color,omitempty"`
	Background string `json:"background,omitempty"`
	Align      string `json:"align,omitempty"`
}

// Merge spans RowSpan x ColSpan cells from the anchor at (Row, Col).
type Merge struct {
	Row     int `json:"row"`
	Col     int `json:"col"`
	RowSpan int `json:"rowSpan"`
	ColSpan int `json:"colSpan"`
}
