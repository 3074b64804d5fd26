package repo

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Snapshot reads every entity of every workspace.
func (r *Repository) Snapshot(ctx context.Context) (*types.Dataset, error) {
	var d types.Dataset
	var err error
	if d.Workspaces, err = r.GetAllWorkspaces(ctx); err != nil {
		return nil, err
	}
	if d.Folders, err = r.GetAllFolders(ctx, ""); err != nil {
		return nil, err
	}
	if d.Notes, err = r.GetAllNotes(ctx, ""); err != nil {
		return nil, err
	}
	if d.CalendarEvents, err = r.GetAllCalendarEvents(ctx, ""); err != nil {
		return nil, err
	}
	if d.Kanban, err = r.GetAllKanban(ctx); err != nil {
		return nil, err
	}
	if d.Settings, err = r.GetAllSettings(ctx); err != nil {
		return nil, err
	}
	return &d, nil
}

// ReplaceAll replaces every row of every store with d in one transaction.
// Stamps carried by d are kept; missing stamps get a fresh one. Rows that
// existed before and are absent from d are tombstoned so a later sync
// deletes them remotely.
func (r *Repository) ReplaceAll(ctx context.Context, d *types.Dataset) error {
	if d == nil {
		return types.ErrInvalidData
	}
	incoming := datasetEntities(d)
	for _, e := range incoming {
		if err := normalizeEntity(e.entity); err != nil {
			return fmt.Errorf("%s %q: %w", e.store, e.entity.PrimaryKey(), err)
		}
	}

	deletedAt := r.clock.Next()
	return r.inTx(ctx, func() error {
		keep := make(map[string]map[string]bool, len(types.StoreNames))
		for _, e := range incoming {
			if keep[e.store] == nil {
				keep[e.store] = map[string]bool{}
			}
			keep[e.store][e.entity.PrimaryKey()] = true
		}
		for _, store := range types.StoreNames {
			if err := r.buryMissing(ctx, store, keep[store], deletedAt); err != nil {
				return err
			}
			if _, err := r.exec.Execute(ctx, fmt.Sprintf(`DELETE FROM "%s"`, store)); err != nil {
				return fmt.Errorf("clear %s: %w", store, err)
			}
		}
		for _, e := range incoming {
			if e.entity.Stamp() == 0 {
				setStamp(e.entity, r.clock.Next())
			}
			r.clock.Observe(e.entity.Stamp())
			if err := r.write(ctx, e.store, e.entity); err != nil {
				return err
			}
			if err := r.unbury(ctx, e.store, e.entity.PrimaryKey()); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repository) buryMissing(ctx context.Context, store string, keep map[string]bool, deletedAt int64) error {
	key := keyColumn(store)
	rows, err := r.exec.Select(ctx, fmt.Sprintf(`SELECT %s AS k FROM "%s"`, key, store))
	if err != nil {
		return fmt.Errorf("list %s keys: %w", store, err)
	}
	for _, row := range rows {
		rr := newReader(store, row)
		k := rr.text("k")
		if rr.err != nil {
			return rr.err
		}
		if keep[k] {
			continue
		}
		if _, err := r.exec.Execute(ctx, `INSERT INTO sync_tombstones (store, id, deleted_at)
VALUES ($1, $2, $3)
ON CONFLICT (store, id) DO UPDATE SET deleted_at = excluded.deleted_at`, store, k, deletedAt); err != nil {
			return fmt.Errorf("record tombstone: %w", err)
		}
	}
	return nil
}

type storedEntity struct {
	store  string
	entity types.Entity
}

// datasetEntities flattens d parents first.
func datasetEntities(d *types.Dataset) []storedEntity {
	out := make([]storedEntity, 0, d.Len())
	for i := range d.Workspaces {
		out = append(out, storedEntity{types.StoreWorkspaces, &d.Workspaces[i]})
	}
	for i := range d.Folders {
		out = append(out, storedEntity{types.StoreFolders, &d.Folders[i]})
	}
	for i := range d.Notes {
		out = append(out, storedEntity{types.StoreNotes, &d.Notes[i]})
	}
	for i := range d.CalendarEvents {
		out = append(out, storedEntity{types.StoreCalendarEvents, &d.CalendarEvents[i]})
	}
	for i := range d.Kanban {
		out = append(out, storedEntity{types.StoreKanban, &d.Kanban[i]})
	}
	for i := range d.Settings {
		out = append(out, storedEntity{types.StoreSettings, &d.Settings[i]})
	}
	return out
}
