package remotesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// ErrNoUser is returned when a PostgresRemote is built without a user id.
var ErrNoUser = errors.New("remote user id is required")

// PostgresRemote is the hosted store. Every transaction sets app.user_id,
// which the row-level security policies compare against each row's
// user_id; queries also filter on it explicitly.
type PostgresRemote struct {
	pool   *pgxpool.Pool
	userID string
	owned  bool
}

// NewPostgresRemote wraps an existing pool.
func NewPostgresRemote(pool *pgxpool.Pool, userID string) (*PostgresRemote, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	return &PostgresRemote{pool: pool, userID: userID}, nil
}

// ConnectPostgres opens a pool for dsn.
func ConnectPostgres(ctx context.Context, dsn, userID string) (*PostgresRemote, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect remote: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping remote: %w", err)
	}
	return &PostgresRemote{pool: pool, userID: userID, owned: true}, nil
}

// Close releases a pool opened by ConnectPostgres.
func (p *PostgresRemote) Close() {
	if p.owned {
		p.pool.Close()
	}
}

// inTx runs fn in a transaction scoped to the remote user.
func (p *PostgresRemote) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, p.userID); err != nil {
		return fmt.Errorf("set user: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// hostedTable maps a store name to its hosted table and key column.
func hostedTable(store string) (table, key string, err error) {
	switch store {
	case types.StoreWorkspaces:
		return "workspaces", "id", nil
	case types.StoreFolders:
		return "folders", "id", nil
	case types.StoreNotes:
		return "notes", "id", nil
	case types.StoreCalendarEvents:
		return "calendar_events", "id", nil
	case types.StoreKanban:
		return "kanban", "workspace_id", nil
	case types.StoreSettings:
		return "settings", "key", nil
	}
	return "", "", fmt.Errorf("%w: %q", types.ErrUnknownStore, store)
}

func (p *PostgresRemote) Fetch(ctx context.Context, store string) ([]types.Entity, error) {
	if _, _, err := hostedTable(store); err != nil {
		return nil, err
	}
	var out []types.Entity
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = fetchRows(ctx, tx, store, p.userID)
		return err
	})
	return out, err
}

const (
	fetchWorkspaces = `SELECT id, name, "order", updated_at FROM workspaces WHERE user_id = $1 ORDER BY id`
	fetchFolders    = `SELECT id, name, workspace_id, "order", updated_at FROM folders WHERE user_id = $1 ORDER BY id`
	fetchNotes      = `SELECT n.id, n.title, n.workspace_id, n.folder_id, n."order", n.type, n.updated_at,
		c.content_html, c.spreadsheet
		FROM notes n LEFT JOIN note_content c ON c.user_id = n.user_id AND c.note_id = n.id
		WHERE n.user_id = $1 ORDER BY n.id`
	fetchEvents = `SELECT id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color, updated_at
		FROM calendar_events WHERE user_id = $1 ORDER BY id`
	fetchKanban   = `SELECT workspace_id, columns, updated_at FROM kanban WHERE user_id = $1 ORDER BY workspace_id`
	fetchSettings = `SELECT key, value, updated_at FROM settings WHERE user_id = $1 ORDER BY key`
)

func fetchRows(ctx context.Context, tx pgx.Tx, store, userID string) ([]types.Entity, error) {
	var q string
	switch store {
	case types.StoreWorkspaces:
		q = fetchWorkspaces
	case types.StoreFolders:
		q = fetchFolders
	case types.StoreNotes:
		q = fetchNotes
	case types.StoreCalendarEvents:
		q = fetchEvents
	case types.StoreKanban:
		q = fetchKanban
	default:
		q = fetchSettings
	}
	rows, err := tx.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Entity
	for rows.Next() {
		e, err := scanEntity(store, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", store, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEntity(store string, rows pgx.Rows) (types.Entity, error) {
	switch store {
	case types.StoreWorkspaces:
		var w types.Workspace
		err := rows.Scan(&w.ID, &w.Name, &w.Order, &w.UpdatedAt)
		return &w, err
	case types.StoreFolders:
		var f types.Folder
		err := rows.Scan(&f.ID, &f.Name, &f.WorkspaceID, &f.Order, &f.UpdatedAt)
		return &f, err
	case types.StoreNotes:
		var n types.Note
		var html *string
		var sheet []byte
		if err := rows.Scan(&n.ID, &n.Title, &n.WorkspaceID, &n.FolderID, &n.Order, &n.Type, &n.UpdatedAt, &html, &sheet); err != nil {
			return nil, err
		}
		if html != nil {
			n.ContentHTML = *html
		}
		if len(sheet) > 0 && string(sheet) != "null" {
			n.Spreadsheet = &types.Spreadsheet{}
			if err := json.Unmarshal(sheet, n.Spreadsheet); err != nil {
				return nil, err
			}
		}
		n.ContentState = types.ContentLoaded
		return &n, nil
	case types.StoreCalendarEvents:
		var e types.CalendarEvent
		var tm, repeat, end, color *string
		var repeatOn, exceptions []byte
		if err := rows.Scan(&e.ID, &e.Date, &e.Title, &tm, &e.WorkspaceID, &repeat, &repeatOn, &end, &exceptions, &color, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Time, e.Repeat, e.RepeatEnd, e.Color = deref(tm), deref(repeat), deref(end), deref(color)
		if e.Repeat == "" {
			e.Repeat = types.RepeatNone
		}
		if err := unmarshalOpt(repeatOn, &e.RepeatOn); err != nil {
			return nil, err
		}
		if err := unmarshalOpt(exceptions, &e.Exceptions); err != nil {
			return nil, err
		}
		return &e, nil
	case types.StoreKanban:
		var k types.Kanban
		var cols []byte
		if err := rows.Scan(&k.WorkspaceID, &cols, &k.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalOpt(cols, &k.Columns); err != nil {
			return nil, err
		}
		if len(k.Columns) == 0 {
			k.Columns = nil
		}
		return &k, nil
	default:
		var s types.Setting
		var value []byte
		if err := rows.Scan(&s.Key, &value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if len(value) > 0 {
			s.Value = json.RawMessage(value)
		}
		return &s, nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func unmarshalOpt(raw []byte, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// jsonArg encodes v for a jsonb parameter, or NULL when empty.
func jsonArg(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Upsert writes rows, each under its own savepoint so one bad row does not
// abort the others.
func (p *PostgresRemote) Upsert(ctx context.Context, store string, rows []types.Entity) error {
	if _, _, err := hostedTable(store); err != nil {
		return err
	}
	var failed []RowError
	err := p.inTx(ctx, func(tx pgx.Tx) error {
		for _, e := range rows {
			sp, err := tx.Begin(ctx)
			if err != nil {
				return err
			}
			if err := upsertRow(ctx, sp, p.userID, e); err != nil {
				_ = sp.Rollback(ctx)
				failed = append(failed, RowError{Store: store, ID: e.PrimaryKey(), Op: OpPush, Err: err})
				continue
			}
			if err := sp.Commit(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &PartialError{Rows: failed}
	}
	return nil
}

func upsertRow(ctx context.Context, tx pgx.Tx, user string, e types.Entity) error {
	switch v := e.(type) {
	case *types.Workspace:
		_, err := tx.Exec(ctx, `INSERT INTO workspaces (user_id, id, name, "order", updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, id) DO UPDATE SET name = EXCLUDED.name, "order" = EXCLUDED."order", updated_at = EXCLUDED.updated_at`,
			user, v.ID, v.Name, v.Order, v.UpdatedAt)
		return err
	case *types.Folder:
		_, err := tx.Exec(ctx, `INSERT INTO folders (user_id, id, name, workspace_id, "order", updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (user_id, id) DO UPDATE SET name = EXCLUDED.name, workspace_id = EXCLUDED.workspace_id,
				"order" = EXCLUDED."order", updated_at = EXCLUDED.updated_at`,
			user, v.ID, v.Name, v.WorkspaceID, v.Order, v.UpdatedAt)
		return err
	case *types.Note:
		typ := v.Type
		if typ == "" {
			typ = types.NoteTypeText
		}
		if _, err := tx.Exec(ctx, `INSERT INTO notes (user_id, id, title, workspace_id, folder_id, "order", type, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (user_id, id) DO UPDATE SET title = EXCLUDED.title, workspace_id = EXCLUDED.workspace_id,
				folder_id = EXCLUDED.folder_id, "order" = EXCLUDED."order", type = EXCLUDED.type, updated_at = EXCLUDED.updated_at`,
			user, v.ID, v.Title, v.WorkspaceID, v.FolderID, v.Order, typ, v.UpdatedAt); err != nil {
			return err
		}
		sheet, err := jsonArg(v.Spreadsheet, v.Spreadsheet == nil)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO note_content (user_id, note_id, content_html, spreadsheet)
			VALUES ($1, $2, $3, $4::jsonb)
			ON CONFLICT (user_id, note_id) DO UPDATE SET content_html = EXCLUDED.content_html, spreadsheet = EXCLUDED.spreadsheet`,
			user, v.ID, v.ContentHTML, sheet)
		return err
	case *types.CalendarEvent:
		repeatOn, err := jsonArg(v.RepeatOn, len(v.RepeatOn) == 0)
		if err != nil {
			return err
		}
		exceptions, err := jsonArg(v.Exceptions, len(v.Exceptions) == 0)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO calendar_events
			(user_id, id, date, title, time, workspace_id, repeat, repeat_on, repeat_end, exceptions, color, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb, $9, $10::jsonb, $11, $12)
			ON CONFLICT (user_id, id) DO UPDATE SET date = EXCLUDED.date, title = EXCLUDED.title, time = EXCLUDED.time,
				workspace_id = EXCLUDED.workspace_id, repeat = EXCLUDED.repeat, repeat_on = EXCLUDED.repeat_on,
				repeat_end = EXCLUDED.repeat_end, exceptions = EXCLUDED.exceptions, color = EXCLUDED.color,
				updated_at = EXCLUDED.updated_at`,
			user, v.ID, v.Date, v.Title, nullable(v.Time), v.WorkspaceID, nullable(v.Repeat), repeatOn,
			nullable(v.RepeatEnd), exceptions, nullable(v.Color), v.UpdatedAt)
		return err
	case *types.Kanban:
		cols := v.Columns
		if cols == nil {
			cols = []types.KanbanColumn{}
		}
		raw, err := json.Marshal(cols)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO kanban (user_id, workspace_id, columns, updated_at)
			VALUES ($1, $2, $3::jsonb, $4)
			ON CONFLICT (user_id, workspace_id) DO UPDATE SET columns = EXCLUDED.columns, updated_at = EXCLUDED.updated_at`,
			user, v.WorkspaceID, string(raw), v.UpdatedAt)
		return err
	case *types.Setting:
		var value any
		if len(v.Value) > 0 {
			value = string(v.Value)
		}
		_, err := tx.Exec(ctx, `INSERT INTO settings (user_id, key, value, updated_at)
			VALUES ($1, $2, $3::jsonb, $4)
			ON CONFLICT (user_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			user, v.Key, value, v.UpdatedAt)
		return err
	}
	return fmt.Errorf("%w: %T", types.ErrInvalidData, e)
}

// Delete removes rows by key. Foreign keys cascade workspace and folder
// deletes to their children.
func (p *PostgresRemote) Delete(ctx context.Context, store string, keys []string) error {
	table, key, err := hostedTable(store)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND %s = ANY($2)`, table, key)
	return p.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, p.userID, keys)
		return err
	})
}
