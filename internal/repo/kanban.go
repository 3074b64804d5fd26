package repo

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const selectKanban = `SELECT workspace_id, columns, updated_at FROM kanban`

func (r *Repository) GetAllKanban(ctx context.Context) ([]types.Kanban, error) {
	rows, err := r.exec.Select(ctx, selectKanban+` ORDER BY workspace_id`)
	if err != nil {
		return nil, fmt.Errorf("select kanban: %w", err)
	}
	out := make([]types.Kanban, 0, len(rows))
	for _, row := range rows {
		k, err := r.decodeKanban(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *k)
	}
	return out, nil
}

// GetKanbanByID returns the board of workspaceID.
func (r *Repository) GetKanbanByID(ctx context.Context, workspaceID string) (*types.Kanban, error) {
	if workspaceID == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectKanban+` WHERE workspace_id = $1`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("select kanban: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return r.decodeKanban(rows[0])
}

func (r *Repository) PutKanban(ctx context.Context, k *types.Kanban) error {
	if k == nil || k.WorkspaceID == "" {
		return types.ErrInvalidData
	}
	k.Columns = nilIfEmpty(k.Columns)
	k.UpdatedAt = r.clock.Next()
	if err := r.writeKanban(ctx, k); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreKanban, k.WorkspaceID)
}

func (r *Repository) writeKanban(ctx context.Context, k *types.Kanban) error {
	cols := []types.KanbanColumn{}
	if k.Columns != nil {
		cols = k.Columns
	}
	encoded, err := encodeJSON(cols, false)
	if err != nil {
		return err
	}
	_, err = r.exec.Execute(ctx, `INSERT INTO kanban (workspace_id, columns, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (workspace_id) DO UPDATE SET
    columns = excluded.columns,
    updated_at = excluded.updated_at`,
		k.WorkspaceID, encoded, k.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert kanban: %w", err)
	}
	return nil
}

func (r *Repository) DeleteKanban(ctx context.Context, workspaceID string) error {
	if workspaceID == "" {
		return types.ErrInvalidID
	}
	return r.removeWhere(ctx, types.StoreKanban, "workspace_id", workspaceID, true, r.clock.Next())
}
