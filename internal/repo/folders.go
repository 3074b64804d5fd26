package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const selectFolders = `SELECT id, name, workspace_id, "order", updated_at FROM folders`

// GetAllFolders lists folders of workspaceID, or of every workspace when
// workspaceID is empty.
func (r *Repository) GetAllFolders(ctx context.Context, workspaceID string) ([]types.Folder, error) {
	q, args := selectFolders, []any(nil)
	if workspaceID != "" {
		q += ` WHERE workspace_id = $1`
		args = append(args, workspaceID)
	}
	rows, err := r.exec.Select(ctx, q+` ORDER BY "order", id`, args...)
	if err != nil {
		return nil, fmt.Errorf("select folders: %w", err)
	}
	out := make([]types.Folder, 0, len(rows))
	for _, row := range rows {
		f, err := decodeFolder(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func (r *Repository) GetFolderByID(ctx context.Context, id string) (*types.Folder, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectFolders+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select folder: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return decodeFolder(rows[0])
}

func (r *Repository) PutFolder(ctx context.Context, f *types.Folder) error {
	if f == nil || f.WorkspaceID == "" {
		return types.ErrInvalidData
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.UpdatedAt = r.clock.Next()
	if err := r.writeFolder(ctx, f); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreFolders, f.ID)
}

func (r *Repository) writeFolder(ctx context.Context, f *types.Folder) error {
	_, err := r.exec.Execute(ctx, `INSERT INTO folders (id, name, workspace_id, "order", updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    workspace_id = excluded.workspace_id,
    "order" = excluded."order",
    updated_at = excluded.updated_at`,
		f.ID, f.Name, f.WorkspaceID, f.Order, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert folder: %w", err)
	}
	return nil
}

// DeleteFolder removes the folder and the notes filed in it. Root-level
// notes of the same workspace are untouched.
func (r *Repository) DeleteFolder(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	deletedAt := r.clock.Next()
	return r.inTx(ctx, func() error {
		return r.cascadeFolder(ctx, id, true, deletedAt)
	})
}

func (r *Repository) cascadeFolder(ctx context.Context, id string, bury bool, deletedAt int64) error {
	if err := r.removeWhere(ctx, types.StoreNotes, "folder_id", id, bury, deletedAt); err != nil {
		return err
	}
	return r.removeWhere(ctx, types.StoreFolders, "id", id, bury, deletedAt)
}
