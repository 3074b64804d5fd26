package native

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/internal/schema"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func setupBackend(t *testing.T, bridge Bridge) *Backend {
	t.Helper()
	b := Open(Options{Bridge: bridge, Name: DBNameDev})
	require.NoError(t, b.Init(context.Background()))
	t.Cleanup(func() { b.Close(context.Background()) })
	return b
}

// flakyBridge wraps a real bridge and fails statements matching failOn.
type flakyBridge struct {
	inner  Bridge
	failOn string
}

func (fb flakyBridge) Load(ctx context.Context, name string) (Conn, error) {
	c, err := fb.inner.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return &flakyConn{Conn: c, failOn: fb.failOn}, nil
}

type flakyConn struct {
	Conn
	failOn string
}

func (fc *flakyConn) Execute(ctx context.Context, q string, args ...any) (types.ExecResult, error) {
	if strings.Contains(q, fc.failOn) {
		return types.ExecResult{}, errors.New("disk I/O error")
	}
	return fc.Conn.Execute(ctx, q, args...)
}

type downBridge struct{}

func (downBridge) Load(context.Context, string) (Conn, error) {
	return nil, errors.New("bridge handle missing")
}

func TestBackend_InitCreatesSchemaFile(t *testing.T) {
	dir := t.TempDir()
	b := setupBackend(t, SQLiteBridge{Dir: dir})

	require.NoError(t, schema.Verify(context.Background(), b))
	assert.FileExists(t, dir+"/"+DBNameDev)
	assert.Equal(t, types.KindNative, b.Kind())
}

func TestBackend_WritesAreDurableWithoutFlush(t *testing.T) {
	ctx := context.Background()
	bridge := SQLiteBridge{Dir: t.TempDir()}

	b := Open(Options{Bridge: bridge})
	require.NoError(t, b.Init(ctx))
	n := &types.Note{ID: "n1", Title: "Native", ContentHTML: "<p>disk</p>", WorkspaceID: "w1", ContentState: types.ContentLoaded}
	require.NoError(t, b.PutNote(ctx, n))
	require.NoError(t, b.PutSetting(ctx, &types.Setting{Key: "theme", Value: json.RawMessage(`"light"`)}))
	require.NoError(t, b.Close(ctx))

	again := Open(Options{Bridge: bridge})
	require.NoError(t, again.Init(ctx))
	defer again.Close(ctx)

	got, err := again.GetNoteByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, n, got)
	s, err := again.GetSettingByID(ctx, "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `"light"`, string(s.Value))
}

func TestBackend_ContentPreservationMatchesEmbedded(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t, SQLiteBridge{Dir: t.TempDir()})

	require.NoError(t, b.PutNote(ctx, &types.Note{ID: "n1", ContentHTML: "<p>Hi</p>", WorkspaceID: "w1", ContentState: types.ContentLoaded}))
	require.NoError(t, b.PutNote(ctx, &types.Note{ID: "n1", WorkspaceID: "w1", ContentState: types.ContentNotLoaded}))
	got, err := b.GetNoteByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>", got.ContentHTML)

	require.NoError(t, b.PutNote(ctx, &types.Note{ID: "n1", WorkspaceID: "w1", ContentState: types.ContentLoaded}))
	got, err = b.GetNoteByID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "", got.ContentHTML)
}

func TestBackend_GenericSurfaceForOtherStores(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t, SQLiteBridge{Dir: t.TempDir()})

	_, ok := any(b).(types.WorkspaceAccessor)
	assert.False(t, ok)

	tbl, err := b.Repo().Table(types.StoreWorkspaces)
	require.NoError(t, err)
	w := &types.Workspace{ID: "w1", Name: "Desk"}
	require.NoError(t, tbl.Put(ctx, w))
	got, err := tbl.Get(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, w, got)
}

func TestBackend_PartialCreateIsTolerated(t *testing.T) {
	ctx := context.Background()
	bridge := SQLiteBridge{Dir: t.TempDir()}

	first := Open(Options{Bridge: bridge})
	require.NoError(t, first.Init(ctx))
	require.NoError(t, first.Close(ctx))

	b := Open(Options{Bridge: flakyBridge{inner: bridge, failOn: "CREATE INDEX"}})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)
	require.NoError(t, schema.Verify(ctx, b))
}

func TestBackend_MissingSchemaEscalates(t *testing.T) {
	ctx := context.Background()
	b := Open(Options{Bridge: flakyBridge{inner: SQLiteBridge{Dir: t.TempDir()}, failOn: "CREATE TABLE"}})
	err := b.Init(ctx)
	assert.ErrorIs(t, err, types.ErrInitFailed)
	assert.Contains(t, err.Error(), types.ErrSchemaMissing.Error())
}

func TestBackend_BridgeFailureIsFatal(t *testing.T) {
	ctx := context.Background()

	err := Open(Options{Bridge: downBridge{}}).Init(ctx)
	assert.ErrorIs(t, err, types.ErrInitFailed)

	err = Open(Options{}).Init(ctx)
	assert.ErrorIs(t, err, types.ErrInitFailed)

	_, err = Open(Options{}).Select(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestBackend_MigratesExistingFile(t *testing.T) {
	ctx := context.Background()
	bridge := SQLiteBridge{Dir: t.TempDir()}

	conn, err := bridge.Load(ctx, DBNameProd)
	require.NoError(t, err)
	for _, ddl := range []string{
		`CREATE TABLE calendarEvents (id TEXT PRIMARY KEY, date TEXT NOT NULL, title TEXT NOT NULL, time TEXT, workspace_id TEXT NOT NULL)`,
		`INSERT INTO calendarEvents (id, date, title, workspace_id) VALUES ('e1', '2024-01-01', 'Old', 'w1')`,
	} {
		_, err := conn.Execute(ctx, ddl)
		require.NoError(t, err)
	}
	require.NoError(t, conn.Close())

	b := Open(Options{Bridge: bridge})
	require.NoError(t, b.Init(ctx))
	defer b.Close(ctx)

	cols, err := schema.Columns(ctx, b, types.StoreCalendarEvents)
	require.NoError(t, err)
	for _, c := range []string{"repeat", "repeat_on", "repeat_end", "exceptions", "color", "updated_at"} {
		assert.Contains(t, cols, c)
	}
	e, err := b.r.GetCalendarEventByID(ctx, "e1")
	require.NoError(t, err)
	assert.NotZero(t, e.UpdatedAt)
}
