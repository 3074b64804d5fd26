package native

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mesh-intelligence/neuronotes/internal/sqlutil"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// Database file names per build mode.
const (
	DBNameProd = "neuronotes.db"
	DBNameDev  = "neuronotes_dev.db"
)

// DBName returns the database file name for mode ("dev" or anything else).
func DBName(mode string) string {
	if mode == "dev" {
		return DBNameDev
	}
	return DBNameProd
}

// Bridge hands out connections to named database files owned by the host.
type Bridge interface {
	Load(ctx context.Context, name string) (Conn, error)
}

// Conn is a bridge connection. Queries use the engine's own $N
// placeholders; arguments bind in order.
type Conn interface {
	Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error)
	Select(ctx context.Context, query string, args ...any) ([]types.Row, error)
	Close() error
}

// SQLiteBridge serves database files from Dir through the ncruces SQLite
// driver.
type SQLiteBridge struct {
	Dir string
}

// Load opens Dir/name in WAL mode with a busy timeout and foreign keys on.
// The pool holds a single connection so explicit transactions issued as
// plain statements stay on one connection.
func (sb SQLiteBridge) Load(ctx context.Context, name string) (Conn, error) {
	if err := os.MkdirAll(sb.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	path := filepath.Join(sb.Dir, name)

	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &sqliteConn{db: db, path: path}, nil
}

type sqliteConn struct {
	db   *sql.DB
	path string
}

func (c *sqliteConn) Execute(ctx context.Context, query string, args ...any) (types.ExecResult, error) {
	return sqlutil.Exec(ctx, c.db, query, args...)
}

func (c *sqliteConn) Select(ctx context.Context, query string, args ...any) ([]types.Row, error) {
	return sqlutil.Query(ctx, c.db, query, args...)
}

// Close checkpoints the WAL and closes the file.
func (c *sqliteConn) Close() error {
	_, _ = c.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return c.db.Close()
}
