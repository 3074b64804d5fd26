package remotesync_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/internal/remotesync"
	"github.com/mesh-intelligence/neuronotes/internal/schema"
	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

// postgresRemote connects to the database named by NEURONOTES_TEST_DSN as
// a fresh user, or skips.
func postgresRemote(t *testing.T, user string) *remotesync.PostgresRemote {
	t.Helper()
	dsn := os.Getenv("NEURONOTES_TEST_DSN")
	if dsn == "" {
		t.Skip("NEURONOTES_TEST_DSN not set")
	}
	require.NoError(t, schema.MigrateHosted(dsn))
	r, err := remotesync.ConnectPostgres(context.Background(), dsn, user)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestPostgres_SyncBetweenDevices(t *testing.T) {
	ctx := context.Background()
	user := "test-" + uuid.NewString()
	remote := postgresRemote(t, user)

	a := newDevice(t, remote)
	require.NoError(t, a.local.PutWorkspace(ctx, &types.Workspace{ID: "ws", Name: "Home"}))
	require.NoError(t, a.local.PutFolder(ctx, &types.Folder{ID: "f", Name: "Inbox", WorkspaceID: "ws"}))
	folder := "f"
	require.NoError(t, a.local.PutNote(ctx, &types.Note{
		ID: "n", Title: "t", ContentHTML: "<p>x</p>", WorkspaceID: "ws", FolderID: &folder,
		ContentState: types.ContentLoaded,
	}))
	require.NoError(t, a.local.PutCalendarEvent(ctx, &types.CalendarEvent{
		ID: "e", Date: "2026-01-05", Title: "Gym", WorkspaceID: "ws",
		Repeat: types.RepeatCustom, RepeatOn: []int{1, 3}, Exceptions: []string{"2026-01-07"},
	}))

	rep := a.sync(t)
	assert.Equal(t, 5, rep.Pushed)
	assert.Empty(t, rep.Errors)

	b := newDevice(t, remote)
	rep = b.sync(t)
	assert.Equal(t, 5, rep.Pulled)
	n, err := b.local.GetNoteByID(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "<p>x</p>", n.ContentHTML)
	e, err := b.local.GetCalendarEventByID(ctx, "e")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, e.RepeatOn)
	assert.Equal(t, []string{"2026-01-07"}, e.Exceptions)

	require.NoError(t, b.local.DeleteFolder(ctx, "f"))
	b.sync(t)
	assert.Empty(t, fetchIDs(t, remote, types.StoreNotes), "folder delete cascades to its notes remotely")

	a.sync(t)
	_, err = a.local.GetNoteByID(ctx, "n")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestPostgres_UsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	one := postgresRemote(t, "test-"+uuid.NewString())
	two := postgresRemote(t, "test-"+uuid.NewString())

	require.NoError(t, one.Upsert(ctx, types.StoreWorkspaces, []types.Entity{&types.Workspace{ID: "ws", Name: "A", UpdatedAt: 1}}))
	assert.Equal(t, []string{"ws"}, fetchIDs(t, one, types.StoreWorkspaces))
	assert.Empty(t, fetchIDs(t, two, types.StoreWorkspaces))
}
