package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

const selectWorkspaces = `SELECT id, name, "order", updated_at FROM workspaces`

// DefaultWorkspaceName names the workspace seeded into an empty store.
const DefaultWorkspaceName = "My Workspace"

func (r *Repository) GetAllWorkspaces(ctx context.Context) ([]types.Workspace, error) {
	rows, err := r.exec.Select(ctx, selectWorkspaces+` ORDER BY "order", id`)
	if err != nil {
		return nil, fmt.Errorf("select workspaces: %w", err)
	}
	out := make([]types.Workspace, 0, len(rows))
	for _, row := range rows {
		w, err := decodeWorkspace(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

func (r *Repository) GetWorkspaceByID(ctx context.Context, id string) (*types.Workspace, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	rows, err := r.exec.Select(ctx, selectWorkspaces+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("select workspace: %w", err)
	}
	if len(rows) == 0 {
		return nil, types.ErrNotFound
	}
	return decodeWorkspace(rows[0])
}

// PutWorkspace creates or replaces w, assigning an ID when empty and
// stamping UpdatedAt.
func (r *Repository) PutWorkspace(ctx context.Context, w *types.Workspace) error {
	if w == nil {
		return types.ErrInvalidData
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	w.UpdatedAt = r.clock.Next()
	if err := r.writeWorkspace(ctx, w); err != nil {
		return err
	}
	return r.unbury(ctx, types.StoreWorkspaces, w.ID)
}

func (r *Repository) writeWorkspace(ctx context.Context, w *types.Workspace) error {
	_, err := r.exec.Execute(ctx, `INSERT INTO workspaces (id, name, "order", updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    name = excluded.name,
    "order" = excluded."order",
    updated_at = excluded.updated_at`,
		w.ID, w.Name, w.Order, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert workspace: %w", err)
	}
	return nil
}

// DeleteWorkspace removes the workspace and everything scoped to it: notes,
// folders, calendar events, the kanban board and settings keyed
// "<name>:<workspaceID>". Deleting a missing workspace is not an error.
func (r *Repository) DeleteWorkspace(ctx context.Context, id string) error {
	if id == "" {
		return types.ErrInvalidID
	}
	deletedAt := r.clock.Next()
	return r.inTx(ctx, func() error {
		return r.cascadeWorkspace(ctx, id, true, deletedAt)
	})
}

func (r *Repository) cascadeWorkspace(ctx context.Context, id string, bury bool, deletedAt int64) error {
	for _, store := range []string{types.StoreNotes, types.StoreFolders, types.StoreCalendarEvents, types.StoreKanban} {
		if err := r.removeWhere(ctx, store, "workspace_id", id, bury, deletedAt); err != nil {
			return err
		}
	}
	keys, err := r.settingKeys(ctx)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !strings.HasSuffix(k, ":"+id) {
			continue
		}
		if err := r.removeWhere(ctx, types.StoreSettings, "key", k, bury, deletedAt); err != nil {
			return err
		}
	}
	return r.removeWhere(ctx, types.StoreWorkspaces, "id", id, bury, deletedAt)
}

// SeedWorkspace creates a default workspace when none exist and reports
// whether it did.
func (r *Repository) SeedWorkspace(ctx context.Context) (*types.Workspace, bool, error) {
	all, err := r.GetAllWorkspaces(ctx)
	if err != nil {
		return nil, false, err
	}
	if len(all) > 0 {
		return &all[0], false, nil
	}
	w := &types.Workspace{Name: DefaultWorkspaceName}
	if err := r.PutWorkspace(ctx, w); err != nil {
		return nil, false, err
	}
	return w, true, nil
}
