package repo_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/neuronotes/pkg/types"
)

func TestTable_UnknownStore(t *testing.T) {
	r, _ := setupRepo(t)
	_, err := r.Table("tasks")
	assert.ErrorIs(t, err, types.ErrUnknownStore)
}

func TestTable_MatchesTypedSurface(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)

	tests := []struct {
		store string
		value types.Entity
		typed func(key string) (any, error)
	}{
		{types.StoreWorkspaces, &types.Workspace{ID: "w1", Name: "A"},
			func(k string) (any, error) { return r.GetWorkspaceByID(ctx, k) }},
		{types.StoreFolders, &types.Folder{ID: "f1", Name: "F", WorkspaceID: "w1"},
			func(k string) (any, error) { return r.GetFolderByID(ctx, k) }},
		{types.StoreNotes, &types.Note{ID: "n1", Title: "N", ContentHTML: "<b>x</b>", WorkspaceID: "w1", FolderID: strPtr("f1"), Type: types.NoteTypeText, ContentState: types.ContentLoaded},
			func(k string) (any, error) { return r.GetNoteByID(ctx, k) }},
		{types.StoreCalendarEvents, &types.CalendarEvent{ID: "e1", Date: "2024-03-04", Title: "E", WorkspaceID: "w1", Repeat: types.RepeatNone},
			func(k string) (any, error) { return r.GetCalendarEventByID(ctx, k) }},
		{types.StoreKanban, &types.Kanban{WorkspaceID: "w1", Columns: []types.KanbanColumn{{ID: "c", Title: "C", Tasks: []types.KanbanTask{}}}},
			func(k string) (any, error) { return r.GetKanbanByID(ctx, k) }},
		{types.StoreSettings, &types.Setting{Key: "useCommonCalendar", Value: json.RawMessage(`true`)},
			func(k string) (any, error) { return r.GetSettingByID(ctx, k) }},
	}
	for _, tt := range tests {
		t.Run(tt.store, func(t *testing.T) {
			tbl, err := r.Table(tt.store)
			require.NoError(t, err)
			require.NoError(t, tbl.Put(ctx, tt.value))

			generic, err := tbl.Get(ctx, tt.value.PrimaryKey())
			require.NoError(t, err)
			typed, err := tt.typed(tt.value.PrimaryKey())
			require.NoError(t, err)
			assert.Equal(t, typed, generic)
			assert.Equal(t, tt.value, generic)

			all, err := tbl.GetAll(ctx)
			require.NoError(t, err)
			assert.Contains(t, all, generic)
		})
	}
}

func TestTable_PutRejectsWrongType(t *testing.T) {
	r, _ := setupRepo(t)
	tbl, err := r.Table(types.StoreNotes)
	require.NoError(t, err)
	assert.ErrorIs(t, tbl.Put(context.Background(), &types.Folder{ID: "f"}), types.ErrInvalidData)
}

func TestTable_GetAllByIndex(t *testing.T) {
	ctx := context.Background()
	r, _ := setupRepo(t)

	require.NoError(t, r.PutNote(ctx, &types.Note{ID: "a", WorkspaceID: "w1", FolderID: strPtr("f1")}))
	require.NoError(t, r.PutNote(ctx, &types.Note{ID: "b", WorkspaceID: "w1"}))
	require.NoError(t, r.PutNote(ctx, &types.Note{ID: "c", WorkspaceID: "w2"}))
	require.NoError(t, r.PutCalendarEvent(ctx, &types.CalendarEvent{ID: "e1", WorkspaceID: "w1", Date: "2024-05-01"}))
	require.NoError(t, r.PutCalendarEvent(ctx, &types.CalendarEvent{ID: "e2", WorkspaceID: "w1", Date: "2024-05-02"}))

	notes, err := r.Table(types.StoreNotes)
	require.NoError(t, err)

	byWS, err := notes.GetAllByIndex(ctx, types.IndexWorkspaceID, "w1")
	require.NoError(t, err)
	assert.Len(t, byWS, 2)

	byFolder, err := notes.GetAllByIndex(ctx, types.IndexFolderID, "f1")
	require.NoError(t, err)
	require.Len(t, byFolder, 1)
	assert.Equal(t, "a", byFolder[0].(*types.Note).ID)

	events, err := r.Table(types.StoreCalendarEvents)
	require.NoError(t, err)
	byDate, err := events.GetAllByIndex(ctx, types.IndexDate, "2024-05-02")
	require.NoError(t, err)
	require.Len(t, byDate, 1)
	assert.Equal(t, "e2", byDate[0].(*types.CalendarEvent).ID)

	kanban, err := r.Table(types.StoreKanban)
	require.NoError(t, err)
	none, err := kanban.GetAllByIndex(ctx, types.IndexWorkspaceID, "w1")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = notes.GetAllByIndex(ctx, types.IndexDate, "2024-05-01")
	assert.ErrorIs(t, err, types.ErrUnknownIndex)

	tbl, err := r.Table(types.StoreNotes)
	require.NoError(t, err)
	require.NoError(t, tbl.Remove(ctx, "a"))
	_, err = tbl.Get(ctx, "a")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
