package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const (
	selectNotes = `SELECT id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet FROM notes`

	// selectNoteSummaries omits the payload columns.
	selectNoteSummaries = `SELECT id, title, updated_at, workspace_id, folder_id, "order", type FROM notes`

	notesOrder = ` ORDER BY "order", updated_at DESC, id`
)

// GetAllNotes lists notes of workspaceID (every workspace when empty) with
// their content loaded.
func (r *Repository) GetAllNotes(ctx context.Context, workspaceID string) ([]types.Note, error) {
	return r.queryNotes(ctx, selectNotes, types.ContentLoaded, "workspace_id", workspaceID)
}

// ListNoteSummaries lists notes without their payload. The returned notes
// are marked ContentNotLoaded, so writing one back keeps the stored body.
func (r *Repository) ListNoteSummaries(ctx context.Context, workspaceID string) ([]types.Note, error) {
	return r.queryNotes(ctx, selectNoteSummaries, types.ContentNotLoaded, "workspace_id", workspaceID)
}

// GetNotesByFolder lists the notes filed in folderID.
func (r *Repository) GetNotesByFolder(ctx context.Context, folderID string) ([]types.Note, error) {
	if folderID == "" {
		return nil, types.ErrInvalidID
	}
	return r.queryNotes(ctx, selectNotes, types.ContentLoaded, "folder_id", folderID)
}

func (r *Repository) queryNotes(ctx context.Context, base string, state types.ContentState, col, val string) ([]types.Note, error) {
	q, args := base, []any(nil)
	if val != "" {
		q += ` WHERE ` + col + ` = $1`
		args = append(args, val)
	}
	rows, err := r.exec.Select(ctx, q+notesOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("select notes: %w", err)
	}
	out := make([]types.Note, 0, len(rows))
	for _, row := range rows {
		n, err := r.decodeNote(row)
		if err != nil {
			return nil, err
		}
		n.ContentState = state
		out = append(out, *n)
	}
	return out, nil
}

func (r *Repository) GetNoteByID(ctx context.Context, id string) (*types.Note, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectNotes+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select note: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	n, err := r.decodeNote(rows[0])
	if err != nil {
		return nil, err
	}
	n.ContentState = types.ContentLoaded
	return n, nil
}

// PutNote creates or replaces n. An empty payload from a caller that never
// loaded the content (ContentState other than ContentLoaded) keeps the
// stored payload; with ContentLoaded the empty payload is written.
func (r *Repository) PutNote(ctx context.Context, n *types.Note) error {
	if err := normalizeNote(n); err != nil {
		return err
	}
	n.UpdatedAt = r.clock.Next()
	if err := r.writeNote(ctx, n, true); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreNotes, n.ID)
}

func normalizeNote(n *types.Note) error {
	if n == nil || n.WorkspaceID == "" {
		return types.ErrInvalidData
	}
	if n.Type != "" && !types.ValidNoteType(n.Type) {
		return fmt.Errorf("%w: %q", types.ErrInvalidType, n.Type)
	}
	if n.FolderID != nil && *n.FolderID == "" {
		n.FolderID = nil
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// writeNote upserts n. With preserve set, the stored type is enforced and
// the content preservation rule applies. A note without a type takes the
// stored one, or text when the note is new.
func (r *Repository) writeNote(ctx context.Context, n *types.Note, preserve bool) error {
	var stored types.Row
	if preserve {
		rows, err := r.exec.Select(ctx, `SELECT type, content_html, spreadsheet FROM notes WHERE id = $1`, n.ID)
		if err != nil {
			return fmt.Errorf("read stored note: %w", err)
		}
		if len(rows) > 0 {
			stored = rows[0]
		}
	}
	if stored != nil {
		storedType := newReader(types.StoreNotes, stored).text("type")
		switch {
		case n.Type == "":
			n.Type = storedType
		case storedType != "" && n.Type != storedType:
			return fmt.Errorf("%w: %s note %s cannot become %s", types.ErrTypeFixed, storedType, n.ID, n.Type)
		}
	}
	if n.Type == "" {
		n.Type = types.NoteTypeText
	}

	var content any = n.ContentHTML
	sheet, err := encodeJSON(n.Spreadsheet, n.Spreadsheet == nil)
	if err != nil {
		return err
	}
	if stored != nil && n.PayloadEmpty() && n.ContentState != types.ContentLoaded {
		content, sheet = stored["content_html"], stored["spreadsheet"]
	}

	var folder any
	if n.FolderID != nil {
		folder = *n.FolderID
	}
	_, err = r.exec.Execute(ctx, `INSERT INTO notes (id, title, content_html, updated_at, workspace_id, folder_id, "order", type, spreadsheet)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    title = excluded.title,
    content_html = excluded.content_html,
    updated_at = excluded.updated_at,
    workspace_id = excluded.workspace_id,
    folder_id = excluded.folder_id,
    "order" = excluded."order",
    type = excluded.type,
    spreadsheet = excluded.spreadsheet`,
		n.ID, n.Title, content, n.UpdatedAt, n.WorkspaceID, folder, n.Order, n.Type, sheet)
	if err != nil {
		return fmt.Errorf("upsert note: %w", err)
	}
	return nil
}

func (r *Repository) DeleteNote(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	return r.removeWhere(ctx, types.StoreNotes, "id", id, true, r.clock.Next())
}
