package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// ExpectedTables lists every table Create instantiates.
func ExpectedTables() []string {
	return append(append([]string(nil), types.StoreNames...), TombstoneTable)
}

// Create instantiates every table and index. It is idempotent: running it
// against an initialized store neither errors nor touches existing rows.
func Create(ctx context.Context, exec Executor) error {
	for _, ddl := range tableDDL {
		if _, err := exec.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := exec.Execute(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// Tables returns the user tables present in the store, sorted.
func Tables(ctx context.Context, exec Executor) ([]string, error) {
	rows, err := exec.Select(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if s, ok := r["name"].(string); ok {
			names = append(names, s)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Verify returns ErrSchemaMissing naming any expected table that is absent.
func Verify(ctx context.Context, exec Executor) error {
	have, err := Tables(ctx, exec)
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(have))
	for _, n := range have {
		present[n] = true
	}
	var missing []string
	for _, n := range ExpectedTables() {
		if !present[n] {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", types.ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}

// Columns returns the column names of table, or nil if the table is absent.
func Columns(ctx context.Context, exec Executor, table string) ([]string, error) {
	rows, err := exec.Select(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	cols := make([]string, 0, len(rows))
	for _, r := range rows {
		if s, ok := r["name"].(string); ok {
			cols = append(cols, s)
		}
	}
	return cols, nil
}

// Migrate adds every column of the canonical layout that an existing table
// lacks and backfills it. It reports whether anything changed so callers
// that persist lazily can save at once.
func Migrate(ctx context.Context, exec Executor, now time.Time) (bool, error) {
	changed := false
	for _, table := range types.StoreNames {
		cols, err := Columns(ctx, exec, table)
		if err != nil {
			return changed, err
		}
		if len(cols) == 0 {
			continue
		}
		have := make(map[string]bool, len(cols))
		for _, c := range cols {
			have[c] = true
		}
		for _, col := range migratable[table] {
			if have[col.Name] {
				continue
			}
			alter := fmt.Sprintf(`ALTER TABLE "%s" ADD COLUMN %s %s`, table, col.Name, col.Def)
			if _, err := exec.Execute(ctx, alter); err != nil {
				return changed, fmt.Errorf("add %s.%s: %w", table, col.Name, err)
			}
			changed = true
			if col.Backfill != "" {
				if _, err := exec.Execute(ctx, col.Backfill, now.UnixMilli()); err != nil {
					return changed, fmt.Errorf("backfill %s.%s: %w", table, col.Name, err)
				}
			}
		}
	}
	return changed, nil
}
