package repo

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// rowReader pulls typed values out of a Row, keeping the first failure as a
// *types.DecodeError.
type rowReader struct {
	store string
	row   types.Row
	err   error
}

func newReader(store string, row types.Row) *rowReader {
	return &rowReader{store: store, row: row}
}

func (rr *rowReader) fail(col string, err error) {
	if rr.err == nil {
		rr.err = &types.DecodeError{Store: rr.store, Column: col, Err: err}
	}
}

// text returns a TEXT column; NULL reads as "".
func (rr *rowReader) text(col string) string {
	switch v := rr.row[col].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		rr.fail(col, fmt.Errorf("expected text, got %T", v))
		return ""
	}
}

// optText returns a nullable TEXT column as a pointer.
func (rr *rowReader) optText(col string) *string {
	if rr.row[col] == nil {
		return nil
	}
	s := rr.text(col)
	return &s
}

// integer returns an INTEGER column; NULL reads as 0.
func (rr *rowReader) integer(col string) int64 {
	switch v := rr.row[col].(type) {
	case nil:
		return 0
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			rr.fail(col, err)
		}
		return n
	default:
		rr.fail(col, fmt.Errorf("expected integer, got %T", v))
		return 0
	}
}

// decodeJSON parses a JSON column. Empty input and malformed JSON both yield
// the zero value; malformed JSON is logged, never returned.
func decodeJSON[T any](log zerolog.Logger, store, id, col, raw string) T {
	var out T
	if raw == "" {
		return out
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn().Err(err).
			Str("store", store).
			Str("id", id).
			Str("column", col).
			Msg("malformed JSON column, using fallback")
		return out
	}
	return v
}

// encodeJSON serializes v for a JSON column; a nil v stores NULL.
func encodeJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidData, err)
	}
	return string(b), nil
}

// nullIfEmpty maps "" to SQL NULL.
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func decodeWorkspace(row types.Row) (*types.Workspace, error) {
	rr := newReader(types.StoreWorkspaces, row)
	w := &types.Workspace{
		ID:        rr.text("id"),
		Name:      rr.text("name"),
		Order:     int(rr.integer("order")),
		UpdatedAt: rr.integer("updated_at"),
	}
	return w, rr.err
}

func decodeFolder(row types.Row) (*types.Folder, error) {
	rr := newReader(types.StoreFolders, row)
	f := &types.Folder{
		ID:          rr.text("id"),
		Name:        rr.text("name"),
		WorkspaceID: rr.text("workspace_id"),
		Order:       int(rr.integer("order")),
		UpdatedAt:   rr.integer("updated_at"),
	}
	return f, rr.err
}

// decodeNote maps a notes row. Rows selected without payload columns decode
// with an empty payload; the caller sets ContentState.
func (r *Repository) decodeNote(row types.Row) (*types.Note, error) {
	rr := newReader(types.StoreNotes, row)
	n := &types.Note{
		ID:          rr.text("id"),
		Title:       rr.text("title"),
		ContentHTML: rr.text("content_html"),
		UpdatedAt:   rr.integer("updated_at"),
		WorkspaceID: rr.text("workspace_id"),
		FolderID:    rr.optText("folder_id"),
		Order:       int(rr.integer("order")),
		Type:        rr.text("type"),
	}
	if n.Type == "" {
		n.Type = types.NoteTypeText
	}
	n.Spreadsheet = decodeJSON[*types.Spreadsheet](r.log, types.StoreNotes, n.ID, "spreadsheet", rr.text("spreadsheet"))
	return n, rr.err
}

func (r *Repository) decodeCalendarEvent(row types.Row) (*types.CalendarEvent, error) {
	rr := newReader(types.StoreCalendarEvents, row)
	e := &types.CalendarEvent{
		ID:          rr.text("id"),
		Date:        rr.text("date"),
		Title:       rr.text("title"),
		Time:        rr.text("time"),
		WorkspaceID: rr.text("workspace_id"),
		Repeat:      rr.text("repeat"),
		RepeatEnd:   rr.text("repeat_end"),
		Color:       rr.text("color"),
		UpdatedAt:   rr.integer("updated_at"),
	}
	if e.Repeat == "" {
		e.Repeat = types.RepeatNone
	}
	e.RepeatOn = nilIfEmpty(decodeJSON[[]int](r.log, types.StoreCalendarEvents, e.ID, "repeat_on", rr.text("repeat_on")))
	e.Exceptions = nilIfEmpty(decodeJSON[[]string](r.log, types.StoreCalendarEvents, e.ID, "exceptions", rr.text("exceptions")))
	return e, rr.err
}

func (r *Repository) decodeKanban(row types.Row) (*types.Kanban, error) {
	rr := newReader(types.StoreKanban, row)
	k := &types.Kanban{
		WorkspaceID: rr.text("workspace_id"),
		UpdatedAt:   rr.integer("updated_at"),
	}
	k.Columns = nilIfEmpty(decodeJSON[[]types.KanbanColumn](r.log, types.StoreKanban, k.WorkspaceID, "columns", rr.text("columns")))
	return k, rr.err
}

// decodeSetting surfaces a value that is not valid JSON as a JSON string
// holding the raw text.
func (r *Repository) decodeSetting(row types.Row) (*types.Setting, error) {
	rr := newReader(types.StoreSettings, row)
	s := &types.Setting{
		Key:       rr.text("key"),
		UpdatedAt: rr.integer("updated_at"),
	}
	if raw := rr.optText("value"); raw != nil {
		if json.Valid([]byte(*raw)) {
			s.Value = json.RawMessage(*raw)
		} else {
			r.log.Warn().
				Str("store", types.StoreSettings).
				Str("id", s.Key).
				Str("column", "value").
				Msg("malformed JSON column, surfacing raw string")
			quoted, _ := json.Marshal(*raw)
			s.Value = quoted
		}
	}
	return s, rr.err
}

func nilIfEmpty[T any](s []T) []T {
	if len(s) == 0 {
		return nil
	}
	return s
}
