// Package backup snapshots the whole data set into versioned JSON documents,
// keeps them in a directory independent of the live store, and restores
// them. Imported files are normalized into the canonical document first.
package backup

import (
	"encoding/json"
	"time"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Version is the document format version.
const Version = "1.0"

// Backup types.
const (
	TypeManual = "manual"
	TypeAuto   = "auto"
)

// Metadata describes a backup. Size is the byte length of the document as
// stored and exported, size field included.
type Metadata struct {
	ID          string `json:"id"`
	Timestamp   int64  `json:"timestamp"`
	Date        string `json:"date"`
	Size        int    `json:"size"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Document is one backup.
type Document struct {
	Version    string        `json:"version"`
	BackupDate string        `json:"backupDate"`
	Metadata   Metadata      `json:"metadata"`
	Data       types.Dataset `json:"data"`
}

// newDocument wraps d with fresh metadata stamped at now.
func newDocument(d types.Dataset, id, kind, description string, now time.Time) (*Document, error) {
	date := now.UTC().Format(time.RFC3339)
	doc := &Document{
		Version:    Version,
		BackupDate: date,
		Metadata: Metadata{
			ID:          id,
			Timestamp:   now.UnixMilli(),
			Date:        date,
			Type:        kind,
			Description: description,
		},
		Data: fillEmpty(d),
	}
	if err := doc.computeSize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// encode serializes doc in its on-disk form.
func (doc *Document) encode() ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// computeSize sets Metadata.Size to the length of the encoded document,
// size field included. The field's digit count grows at most once, so the
// length settles within four passes.
func (doc *Document) computeSize() error {
	doc.Metadata.Size = 0
	for range 4 {
		raw, err := doc.encode()
		if err != nil {
			return err
		}
		if len(raw) == doc.Metadata.Size {
			return nil
		}
		doc.Metadata.Size = len(raw)
	}
	return nil
}

// fillEmpty replaces nil slices so every store serializes as an array.
func fillEmpty(d types.Dataset) types.Dataset {
	if d.Workspaces == nil {
		d.Workspaces = []types.Workspace{}
	}
	if d.Folders == nil {
		d.Folders = []types.Folder{}
	}
	if d.Notes == nil {
		d.Notes = []types.Note{}
	}
	if d.CalendarEvents == nil {
		d.CalendarEvents = []types.CalendarEvent{}
	}
	if d.Kanban == nil {
		d.Kanban = []types.Kanban{}
	}
	if d.Settings == nil {
		d.Settings = []types.Setting{}
	}
	for i := range d.Notes {
		d.Notes[i].ContentState = types.ContentUnknown
	}
	return d
}
