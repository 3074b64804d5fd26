package remotesync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/internal/embedded"
	"github.com/mesh-intelligence/neuronotes/internal/kvstore"
	"github.com/mesh-intelligence/neuronotes/internal/remotesync"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

type device struct {
	local  *embedded.Backend
	kv     *kvstore.MemoryStore
	syncer *remotesync.Syncer
}

func newDevice(t *testing.T, remote remotesync.Remote) *device {
	t.Helper()
	ctx := context.Background()
	b := embedded.Open(embedded.Options{KV: kvstore.NewMemory(), Debounce: time.Hour, AutosaveInterval: -1})
	require.NoError(t, b.Init(ctx))
	require.NoError(t, b.Repo().Prepare(ctx))
	t.Cleanup(func() { b.Close(ctx) })

	kv := kvstore.NewMemory()
	return &device{
		local:  b,
		kv:     kv,
		syncer: remotesync.NewSyncer(remotesync.Options{Local: b, Remote: remote, KV: kv}),
	}
}

func (d *device) sync(t *testing.T) *remotesync.Report {
	t.Helper()
	rep, err := d.syncer.Sync(context.Background())
	require.NoError(t, err)
	return rep
}

func fetchIDs(t *testing.T, r remotesync.Remote, store string) []string {
	t.Helper()
	rows, err := r.Fetch(context.Background(), store)
	require.NoError(t, err)
	ids := make([]string, 0, len(rows))
	for _, e := range rows {
		ids = append(ids, e.PrimaryKey())
	}
	return ids
}

func TestSync_PushThenPullOnSecondDevice(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	a := newDevice(t, remote)
	require.NoError(t, a.local.PutWorkspace(ctx, &types.Workspace{ID: "ws", Name: "Home"}))
	require.NoError(t, a.local.PutNote(ctx, &types.Note{ID: "n-1", Title: "hello", ContentHTML: "<p>Hi</p>", WorkspaceID: "ws", ContentState: types.ContentLoaded}))
	require.NoError(t, a.local.PutKanban(ctx, &types.Kanban{WorkspaceID: "ws"}))

	rep := a.sync(t)
	assert.Equal(t, 3, rep.Pushed)
	assert.Empty(t, rep.Errors)
	assert.NotZero(t, rep.LastSync)
	last, err := a.syncer.LastSync(ctx)
	require.NoError(t, err)
	assert.Equal(t, rep.LastSync, last)

	b := newDevice(t, remote)
	rep = b.sync(t)
	assert.Equal(t, 3, rep.Pulled)

	n, err := b.local.GetNoteByID(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "<p>Hi</p>", n.ContentHTML)
	orig, err := a.local.GetNoteByID(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, orig.UpdatedAt, n.UpdatedAt, "stamps travel unchanged")

	rep = a.sync(t)
	assert.Zero(t, rep.Pushed+rep.Pulled+rep.DeletedLocal+rep.DeletedRemote)
}

func TestSync_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)

	require.NoError(t, d.local.ApplyUpsert(ctx, &types.Workspace{ID: "local-newer", Name: "mine", UpdatedAt: 2000}))
	require.NoError(t, d.local.ApplyUpsert(ctx, &types.Workspace{ID: "remote-newer", Name: "mine", UpdatedAt: 1000}))
	require.NoError(t, remote.Upsert(ctx, types.StoreWorkspaces, []types.Entity{
		&types.Workspace{ID: "local-newer", Name: "theirs", UpdatedAt: 1000},
		&types.Workspace{ID: "remote-newer", Name: "theirs", UpdatedAt: 2000},
	}))

	rep := d.sync(t)
	assert.Equal(t, 1, rep.Pushed)
	assert.Equal(t, 1, rep.Pulled)

	w, err := d.local.GetWorkspaceByID(ctx, "remote-newer")
	require.NoError(t, err)
	assert.Equal(t, "theirs", w.Name)

	rows, err := remote.Fetch(ctx, types.StoreWorkspaces)
	require.NoError(t, err)
	names := map[string]string{}
	for _, e := range rows {
		names[e.PrimaryKey()] = e.(*types.Workspace).Name
	}
	assert.Equal(t, map[string]string{"local-newer": "mine", "remote-newer": "theirs"}, names)
}

func TestSync_EqualStampsConverge(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)

	require.NoError(t, d.local.ApplyUpsert(ctx, &types.Note{ID: "n", Title: "left", WorkspaceID: "ws", UpdatedAt: 500}))
	require.NoError(t, remote.Upsert(ctx, types.StoreNotes, []types.Entity{
		&types.Note{ID: "n", Title: "right", WorkspaceID: "ws", Type: types.NoteTypeText, UpdatedAt: 500},
	}))

	rep := d.sync(t)
	assert.Equal(t, 1, rep.Ties)
	assert.Equal(t, 1, rep.Pushed+rep.Pulled)

	local, err := d.local.GetNoteByID(ctx, "n")
	require.NoError(t, err)
	rows, err := remote.Fetch(ctx, types.StoreNotes)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rows[0].(*types.Note).Title, local.Title)

	rep = d.sync(t)
	assert.Equal(t, 1, rep.Ties)
	assert.Zero(t, rep.Pushed+rep.Pulled, "converged rows are left alone")
}

func TestSync_LocalDeletePropagates(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "ws", Name: "Home"}))
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "ws-2", Name: "Work"}))
	require.NoError(t, d.local.PutFolder(ctx, &types.Folder{ID: "f", Name: "F", WorkspaceID: "ws-2"}))
	require.NoError(t, d.local.PutNote(ctx, &types.Note{ID: "n", Title: "t", WorkspaceID: "ws-2", FolderID: strPtr("f")}))
	d.sync(t)

	require.NoError(t, d.local.DeleteWorkspace(ctx, "ws-2"))
	rep := d.sync(t)
	assert.Equal(t, 1, rep.DeletedRemote, "the remote cascades the folder and note")
	assert.Equal(t, []string{"ws"}, fetchIDs(t, remote, types.StoreWorkspaces))
	assert.Empty(t, fetchIDs(t, remote, types.StoreNotes))

	ts, err := d.local.Tombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, ts, "acknowledged tombstones are cleared")
}

func TestSync_RemoteDeletePropagates(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "ws", Name: "Home"}))
	require.NoError(t, d.local.PutFolder(ctx, &types.Folder{ID: "f", Name: "F", WorkspaceID: "ws"}))
	require.NoError(t, d.local.PutNote(ctx, &types.Note{ID: "n", Title: "t", WorkspaceID: "ws", FolderID: strPtr("f")}))
	d.sync(t)

	require.NoError(t, remote.Delete(ctx, types.StoreFolders, []string{"f"}))
	rep := d.sync(t)
	assert.Equal(t, 1, rep.DeletedLocal, "the folder; its note went with the cascade")

	_, err := d.local.GetNoteByID(ctx, "n")
	assert.ErrorIs(t, err, types.ErrNotFound)
	ts, err := d.local.Tombstones(ctx)
	require.NoError(t, err)
	assert.Empty(t, ts, "remote deletes leave no tombstones")
}

func TestSync_NewerRemoteEditBeatsLocalDelete(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "ws", Name: "Home"}))
	require.NoError(t, d.local.PutSetting(ctx, &types.Setting{Key: "theme", Value: []byte(`"dark"`)}))
	d.sync(t)

	require.NoError(t, d.local.DeleteSetting(ctx, "theme"))
	ts, err := d.local.Tombstones(ctx)
	require.NoError(t, err)
	require.Len(t, ts, 1)

	require.NoError(t, remote.Upsert(ctx, types.StoreSettings, []types.Entity{
		&types.Setting{Key: "theme", Value: []byte(`"light"`), UpdatedAt: ts[0].DeletedAt + 1000},
	}))
	rep := d.sync(t)
	assert.Equal(t, 1, rep.Pulled)
	assert.Zero(t, rep.DeletedRemote)

	s, err := d.local.GetSettingByID(ctx, "theme")
	require.NoError(t, err)
	assert.JSONEq(t, `"light"`, string(s.Value))
}

func TestSync_TenantsAreIsolated(t *testing.T) {
	ctx := context.Background()
	shared := remotesync.NewMemoryRemote("alice")
	alice := newDevice(t, shared)
	bob := newDevice(t, shared.As("bob"))

	require.NoError(t, alice.local.PutWorkspace(ctx, &types.Workspace{ID: "a", Name: "Alice"}))
	require.NoError(t, bob.local.PutWorkspace(ctx, &types.Workspace{ID: "b", Name: "Bob"}))
	alice.sync(t)
	bob.sync(t)

	assert.Equal(t, []string{"a"}, fetchIDs(t, shared, types.StoreWorkspaces))
	assert.Equal(t, []string{"b"}, fetchIDs(t, shared.As("bob"), types.StoreWorkspaces))

	ws, err := bob.local.GetAllWorkspaces(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "b", ws[0].ID)
}

func TestSync_RowFailuresAreReported(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	remote.Reject("bad")
	d := newDevice(t, remote)
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "good", Name: "ok"}))
	require.NoError(t, d.local.PutWorkspace(ctx, &types.Workspace{ID: "bad", Name: "nope"}))

	rep := d.sync(t)
	assert.Equal(t, 1, rep.Pushed)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "bad", rep.Errors[0].ID)
	assert.ErrorIs(t, &rep.Errors[0], remotesync.ErrRejected)
	assert.Zero(t, rep.LastSync)

	last, err := d.syncer.LastSync(ctx)
	require.NoError(t, err)
	assert.Zero(t, last, "a sync with failures is retried in full")
}

func strPtr(s string) *string { return &s }

func TestSync_RowStampedAtSyncStartIsPushedNextTime(t *testing.T) {
	ctx := context.Background()
	remote := remotesync.NewMemoryRemote("user-1")
	d := newDevice(t, remote)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	syncer := remotesync.NewSyncer(remotesync.Options{
		Local: d.local, Remote: remote, KV: d.kv,
		Now: func() time.Time { return start },
	})

	rep, err := syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Less(t, rep.LastSync, start.UnixMilli())

	// Written in the same millisecond the sync began.
	require.NoError(t, d.local.ApplyUpsert(ctx, &types.Workspace{ID: "ws", Name: "Home", UpdatedAt: start.UnixMilli()}))

	rep, err = syncer.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Pushed)
	assert.Zero(t, rep.DeletedLocal)
	assert.Equal(t, []string{"ws"}, fetchIDs(t, remote, types.StoreWorkspaces))
	_, err = d.local.GetWorkspaceByID(ctx, "ws")
	assert.NoError(t, err)
}
