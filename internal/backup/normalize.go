package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// ErrUnrecognizedShape is wrapped by every ImportError.
var ErrUnrecognizedShape = errors.New("unrecognized backup shape")

// Import shapes.
const (
	ShapeDocument = "document" // version, metadata and data
	ShapeWrapper  = "wrapper"  // {data:{...}} without metadata
	ShapeBare     = "bare"     // store arrays at the top level
)

// ImportError explains why an imported file was rejected.
type ImportError struct {
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnrecognizedShape, e.Reason)
}

func (e *ImportError) Unwrap() error { return ErrUnrecognizedShape }

func rejectf(format string, args ...any) error {
	return &ImportError{Reason: fmt.Sprintf(format, args...)}
}

// Normalize parses raw as one of the three accepted shapes and returns the
// canonical document and the detected shape. Metadata missing from the
// input is synthesized with a fresh id, the time now and a computed size.
func Normalize(raw []byte, now time.Time) (*Document, string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return nil, "", rejectf("not a JSON object")
	}

	if dataRaw, ok := top["data"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(dataRaw, &inner); err != nil || inner == nil {
			return nil, "", rejectf("data is not an object")
		}
		d, err := decodeStores(inner, true)
		if err != nil {
			return nil, "", err
		}
		if _, hasMeta := top["metadata"]; hasMeta {
			doc, err := fromDocument(top, d, now)
			return doc, ShapeDocument, err
		}
		doc, err := newDocument(d, uuid.NewString(), TypeManual, "Imported backup", now)
		return doc, ShapeWrapper, err
	}

	d, err := decodeStores(top, false)
	if err != nil {
		return nil, "", err
	}
	doc, err := newDocument(d, uuid.NewString(), TypeManual, "Imported backup", now)
	return doc, ShapeBare, err
}

// fromDocument keeps the metadata of a full document, filling gaps.
func fromDocument(top map[string]json.RawMessage, d types.Dataset, now time.Time) (*Document, error) {
	var meta Metadata
	if err := json.Unmarshal(top["metadata"], &meta); err != nil {
		return nil, rejectf("metadata: %v", err)
	}
	var version, backupDate string
	if v, ok := top["version"]; ok {
		if err := json.Unmarshal(v, &version); err != nil {
			return nil, rejectf("version is not a string")
		}
	}
	if v, ok := top["backupDate"]; ok {
		_ = json.Unmarshal(v, &backupDate)
	}

	if _, err := uuid.Parse(meta.ID); err != nil {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp == 0 {
		meta.Timestamp = now.UnixMilli()
	}
	if meta.Date == "" {
		meta.Date = time.UnixMilli(meta.Timestamp).UTC().Format(time.RFC3339)
	}
	if meta.Type != TypeAuto {
		meta.Type = TypeManual
	}
	if version == "" {
		version = Version
	}
	if backupDate == "" {
		backupDate = meta.Date
	}

	doc := &Document{Version: version, BackupDate: backupDate, Metadata: meta, Data: fillEmpty(d)}
	if err := doc.computeSize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeStores reads the six store arrays out of fields. At least one store
// must be present for the input to be recognized. Inside a data wrapper every
// key must name a store, so a misspelled store is rejected rather than
// dropped.
func decodeStores(fields map[string]json.RawMessage, wrapped bool) (types.Dataset, error) {
	var d types.Dataset
	found := 0
	targets := map[string]any{
		types.StoreWorkspaces:     &d.Workspaces,
		types.StoreFolders:        &d.Folders,
		types.StoreNotes:          &d.Notes,
		types.StoreCalendarEvents: &d.CalendarEvents,
		types.StoreKanban:         &d.Kanban,
		types.StoreSettings:       &d.Settings,
	}
	for _, name := range types.StoreNames {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		found++
		trimmed := bytes.TrimSpace(raw)
		if bytes.Equal(trimmed, []byte("null")) {
			continue
		}
		if len(trimmed) == 0 || trimmed[0] != '[' {
			return d, rejectf("%s is not an array", name)
		}
		if err := json.Unmarshal(trimmed, targets[name]); err != nil {
			return d, rejectf("%s: %v", name, err)
		}
	}
	if wrapped {
		var unknown []string
		for key := range fields {
			if !types.IsStoreName(key) {
				unknown = append(unknown, key)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return d, rejectf("unknown stores in data: %s", strings.Join(unknown, ", "))
		}
	}
	if found == 0 {
		where := "top-level keys"
		if wrapped {
			where = "data keys"
		}
		return d, rejectf("no known stores among %d %s", len(fields), where)
	}
	return d, nil
}
