// Package sqlutil holds the database/sql plumbing shared by the embedded and
// native backends.
package sqlutil

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Exec runs a mutating statement and reports its effect. Drivers that do not
// support LastInsertId leave it at zero.
func Exec(ctx context.Context, q Querier, query string, args ...any) (types.ExecResult, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return types.ExecResult{}, err
	}
	var out types.ExecResult
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	return out, nil
}

// Query runs a query and materializes every row.
func Query(ctx context.Context, q Querier, query string, args ...any) ([]types.Row, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// ScanRows reads all remaining rows keyed by column name. TEXT values that
// arrive as []byte are converted to string.
func ScanRows(rows *sql.Rows) ([]types.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var out []types.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(types.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
