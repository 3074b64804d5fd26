package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// HostedMigrations holds the Postgres DDL of the remote sync target: seven
// tenant-scoped tables with row-level security keyed on app.user_id.
//
//go:embed migrations/*.sql
var HostedMigrations embed.FS

// HostedTables lists the remote tables, parents first.
var HostedTables = []string{
	"workspaces",
	"folders",
	"notes",
	"note_content",
	"calendar_events",
	"kanban",
	"settings",
}

// MigrationURL rewrites a postgres:// DSN into the pgx5:// scheme the
// migrate driver registers under.
func MigrationURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// MigrateHosted applies every pending hosted migration to the database at
// dsn. An already up-to-date database is not an error.
func MigrateHosted(dsn string) error {
	src, err := iofs.New(HostedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open hosted migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, MigrationURL(dsn))
	if err != nil {
		return fmt.Errorf("connect for migration: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply hosted migrations: %w", err)
	}
	return nil
}
