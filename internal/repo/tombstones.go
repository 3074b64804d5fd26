package repo

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// keyColumn maps a store to its primary key column.
func keyColumn(store string) string {
	switch store {
	case types.StoreKanban:
		return "workspace_id"
	case types.StoreSettings:
		return "key"
	default:
		return "id"
	}
}

// removeWhere deletes rows of store matching col = val. When bury is set a
// tombstone stamped deletedAt is recorded first for every matching row.
func (r *Repository) removeWhere(ctx context.Context, store, col string, val any, bury bool, deletedAt int64) error {
	if bury {
		q := fmt.Sprintf(`INSERT INTO sync_tombstones (store, id, deleted_at)
SELECT $1, %s, $2 FROM "%s" WHERE %s = $3
ON CONFLICT (store, id) DO UPDATE SET deleted_at = excluded.deleted_at`, keyColumn(store), store, col)
		if _, err := r.exec.Execute(ctx, q, store, deletedAt, val); err != nil {
			return fmt.Errorf("record tombstones for %s: %w", store, err)
		}
	}
	q := fmt.Sprintf(`DELETE FROM "%s" WHERE %s = $1`, store, col)
	if _, err := r.exec.Execute(ctx, q, val); err != nil {
		return fmt.Errorf("delete from %s: %w", store, err)
	}
	return nil
}

// unbury drops the tombstone of a row that is being written again.
func (r *Repository) unbury(ctx context.Context, store, key string) error {
	if _, err := r.exec.Execute(ctx,
		`DELETE FROM sync_tombstones WHERE store = $1 AND id = $2`, store, key); err != nil {
		return fmt.Errorf("clear tombstone: %w", err)
	}
	return nil
}

// Tombstones lists local deletes not yet acknowledged by a sync.
func (r *Repository) Tombstones(ctx context.Context) ([]types.Tombstone, error) {
	rows, err := r.exec.Select(ctx,
		`SELECT store, id, deleted_at FROM sync_tombstones ORDER BY deleted_at, store, id`)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	out := make([]types.Tombstone, 0, len(rows))
	for _, row := range rows {
		rr := newReader(schemaTombstones, row)
		t := types.Tombstone{Store: rr.text("store"), ID: rr.text("id"), DeletedAt: rr.integer("deleted_at")}
		if rr.err != nil {
			return nil, rr.err
		}
		out = append(out, t)
	}
	return out, nil
}

// ClearTombstones removes the given tombstones unless the row was deleted
// again after the tombstone was read.
func (r *Repository) ClearTombstones(ctx context.Context, ts []types.Tombstone) error {
	for _, t := range ts {
		if _, err := r.exec.Execute(ctx,
			`DELETE FROM sync_tombstones WHERE store = $1 AND id = $2 AND deleted_at <= $3`,
			t.Store, t.ID, t.DeletedAt); err != nil {
			return fmt.Errorf("clear tombstone %s/%s: %w", t.Store, t.ID, err)
		}
	}
	return nil
}

const schemaTombstones = "sync_tombstones"
