package embedded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/internal/kvstore"
	"github.com/mesh-intelligence/neuronotes/internal/schema"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func setupBackend(t *testing.T, kv kvstore.Store, debounce time.Duration) *Backend {
	t.Helper()
	b := Open(Options{KV: kv, Key: kvstore.BlobKeyDev, Debounce: debounce, AutosaveInterval: -1})
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { b.Close(context.Background()) })
	return b
}

// imageOf builds a database image by running ddl against a scratch
// in-memory database.
func imageOf(t *testing.T, stmts ...string) []byte {
	t.Helper()
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	for _, s := range stmts {
		_, err := conn.ExecContext(ctx, s)
		require.NoError(t, err)
	}
	var img []byte
	require.NoError(t, conn.Raw(func(dc any) error {
		var err error
		img, err = dc.(serializer).Serialize()
		return err
	}))
	return img
}

func TestBackend_InitFreshCreatesSchemaAndSaves(t *testing.T) {
	kv := kvstore.NewMemory()
	b := setupBackend(t, kv, time.Hour)

	tables, err := schema.Tables(context.Background(), b)
	require.NoError(t, err)
	assert.ElementsMatch(t, schema.ExpectedTables(), tables)
	assert.Equal(t, 1, kv.Sets(kvstore.BlobKeyDev), "fresh database is saved at once")
	assert.Equal(t, 0, kv.Sets(kvstore.BlobKeyProd))
}

func TestBackend_NotInitialized(t *testing.T) {
	b := Open(Options{AutosaveInterval: -1})
	_, err := b.Execute(context.Background(), `SELECT 1`)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestBackend_DebounceCoalescesAndFlushWaits(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	b := setupBackend(t, kv, 200*time.Millisecond)
	before := kv.Sets(kvstore.BlobKeyDev)

	for i := 0; i < 50; i++ {
		_, err := b.Execute(ctx, `INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)`,
			fmt.Sprintf("key-%d", i), `1`, int64(i))
		require.NoError(t, err)
	}
	assert.Equal(t, before, kv.Sets(kvstore.BlobKeyDev), "no write inside the debounce window")

	require.NoError(t, b.Flush(ctx))
	assert.Equal(t, before+1, kv.Sets(kvstore.BlobKeyDev))
	assert.False(t, b.Dirty())

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, before+1, kv.Sets(kvstore.BlobKeyDev), "flushed timer must not fire again")
}

func TestBackend_DebouncedSaveFires(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	b := setupBackend(t, kv, 20*time.Millisecond)
	before := kv.Sets(kvstore.BlobKeyDev)

	require.NoError(t, b.PutWorkspace(ctx, &types.Workspace{Name: "Home"}))
	require.Eventually(t, func() bool { return kv.Sets(kvstore.BlobKeyDev) == before+1 },
		time.Second, 5*time.Millisecond)
}

func TestBackend_FlushWithNothingPendingSaves(t *testing.T) {
	kv := kvstore.NewMemory()
	b := setupBackend(t, kv, time.Hour)
	before := kv.Sets(kvstore.BlobKeyDev)

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, before+1, kv.Sets(kvstore.BlobKeyDev))
}

func TestBackend_StatePersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	b := Open(Options{KV: kv, AutosaveInterval: -1})
	require.NoError(t, b.Init(ctx))
	w := &types.Workspace{Name: "Work", Order: 2}
	require.NoError(t, b.PutWorkspace(ctx, w))
	require.NoError(t, b.Close(ctx))

	reopened := Open(Options{KV: kv, AutosaveInterval: -1})
	require.NoError(t, reopened.Init(ctx))
	defer reopened.Close(ctx)

	got, err := reopened.GetWorkspaceByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestBackend_CorruptImageFallsBackToFresh(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, kvstore.BlobKeyProd, []byte("definitely not a database image")))

	b := Open(Options{KV: kv, AutosaveInterval: -1})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)

	require.NoError(t, schema.Verify(ctx, b))
	all, err := b.GetAllWorkspaces(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBackend_SchemalessImageIsRecreated(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	require.NoError(t, kv.Set(ctx, kvstore.BlobKeyProd, imageOf(t, `PRAGMA user_version = 7`)))

	b := Open(Options{KV: kv, AutosaveInterval: -1})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)

	require.NoError(t, schema.Verify(ctx, b))
}

func TestBackend_MigratesOldLayoutAndSavesAtOnce(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	img := imageOf(t,
		`CREATE TABLE workspaces (id TEXT PRIMARY KEY, name TEXT NOT NULL, "order" INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE folders (id TEXT PRIMARY KEY, name TEXT NOT NULL, workspace_id TEXT NOT NULL, "order" INTEGER NOT NULL DEFAULT 0)`,
		`CREATE TABLE notes (id TEXT PRIMARY KEY, title TEXT NOT NULL, content_html TEXT, updated_at INTEGER NOT NULL, workspace_id TEXT NOT NULL, folder_id TEXT, "order" INTEGER NOT NULL DEFAULT 0, type TEXT NOT NULL DEFAULT 'text', spreadsheet TEXT)`,
		`CREATE TABLE calendarEvents (id TEXT PRIMARY KEY, date TEXT NOT NULL, title TEXT NOT NULL, time TEXT, workspace_id TEXT NOT NULL)`,
		`CREATE TABLE kanban (workspace_id TEXT PRIMARY KEY, columns TEXT NOT NULL)`,
		`CREATE TABLE settings (key TEXT PRIMARY KEY, value TEXT)`,
		`INSERT INTO workspaces (id, name) VALUES ('w1', 'Old')`,
		`INSERT INTO kanban (workspace_id, columns) VALUES ('w1', '[]')`,
		`INSERT INTO calendarEvents (id, date, title, workspace_id) VALUES ('e1', '2024-01-01', 'Standup', 'w1')`,
	)
	require.NoError(t, kv.Set(ctx, kvstore.BlobKeyProd, img))
	sets := kv.Sets(kvstore.BlobKeyProd)

	now := time.UnixMilli(1_700_000_000_000)
	b := Open(Options{KV: kv, AutosaveInterval: -1, Now: func() time.Time { return now }})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)

	assert.Equal(t, sets+1, kv.Sets(kvstore.BlobKeyProd), "migration is persisted without waiting for the debounce")

	k, err := b.GetKanbanByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), k.UpdatedAt)

	e, err := b.GetCalendarEventByID(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, types.RepeatNone, e.Repeat)
	assert.Nil(t, e.Exceptions)

	cols, err := schema.Columns(ctx, b, types.StoreCalendarEvents)
	require.NoError(t, err)
	assert.Contains(t, cols, "color")
}

func TestBackend_SaveFailureDoesNotPropagate(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	b := setupBackend(t, kv, time.Hour)

	quota := errors.New("quota exceeded")
	kv.FailSets(quota)

	w := &types.Workspace{Name: "Still here"}
	require.NoError(t, b.PutWorkspace(ctx, w))
	require.NoError(t, b.Flush(ctx))

	st := b.Stats()
	assert.Equal(t, 1, st.Failures)
	assert.ErrorIs(t, st.LastError, quota)
	assert.True(t, b.Dirty())

	got, err := b.GetWorkspaceByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Still here", got.Name)

	kv.FailSets(nil)
	require.NoError(t, b.Flush(ctx))
	assert.False(t, b.Dirty())
	assert.NoError(t, b.Stats().LastError)
}

func TestBackend_CloseSavesAndRejectsFurtherUse(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	b := Open(Options{KV: kv, Debounce: time.Hour, AutosaveInterval: -1})
	require.NoError(t, b.Init(ctx))
	before := kv.Sets(kvstore.BlobKeyProd)

	require.NoError(t, b.PutSetting(ctx, &types.Setting{Key: "theme", Value: []byte(`"dark"`)}))
	require.NoError(t, b.Close(ctx))
	assert.Equal(t, before+1, kv.Sets(kvstore.BlobKeyProd))

	_, err := b.Select(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.NoError(t, b.Close(ctx))
	assert.ErrorIs(t, b.Init(ctx), types.ErrClosed)
}

func TestBackend_AutosaveOnlyWhenDirty(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	b := Open(Options{KV: kv, Debounce: time.Hour, AutosaveInterval: 20 * time.Millisecond})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)
	before := kv.Sets(kvstore.BlobKeyProd)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, before, kv.Sets(kvstore.BlobKeyProd))

	require.NoError(t, b.PutWorkspace(ctx, &types.Workspace{Name: "Tick"}))
	require.Eventually(t, func() bool { return kv.Sets(kvstore.BlobKeyProd) > before },
		time.Second, 5*time.Millisecond)
}

func TestBackend_PlaceholdersBindInOrder(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t, kvstore.NewMemory(), time.Hour)

	rows, err := b.Select(ctx, `SELECT $2 AS second, $1 AS first, '$1' AS literal`, "a", "b")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0]["second"])
	assert.Equal(t, "a", rows[0]["first"])
	assert.Equal(t, "$1", rows[0]["literal"])
}
