package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mapsketch/polystore/internal/polygon"
	"github.com/mapsketch/polystore/internal/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "polygons.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func testDraft(name, session string) polygon.Draft {
	return polygon.Draft{
		Name:        name,
		Coordinates: []polygon.Point{{0, 0}, {1, 1}, {2, 0}},
		SessionID:   session,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestCreateAssignsUniqueIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, testDraft("A", "s1"))
	require.NoError(t, err)
	second, err := store.Create(ctx, testDraft("B", "s2"))
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, "s1", first.SessionID)
	require.Equal(t, "s2", second.SessionID)
	require.False(t, first.CreatedAt.IsZero())
}

func TestCreateRejectsInvalidDrafts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, polygon.Draft{Name: "", Coordinates: []polygon.Point{{0, 0}, {1, 1}, {2, 0}}})
	require.ErrorIs(t, err, polygon.ErrInvalid)

	_, err = store.Create(ctx, polygon.Draft{Name: "X", Coordinates: []polygon.Point{{0, 0}, {1, 1}}, SessionID: "s1"})
	require.ErrorIs(t, err, polygon.ErrInvalid)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestListPreservesInsertionOrderAndCoordinates(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ring := []polygon.Point{{4, 0}, {1, 3}, {2, 2}, {0, 1}}
	_, err := store.Create(ctx, polygon.Draft{Name: "first", Coordinates: ring, SessionID: "s1"})
	require.NoError(t, err)
	_, err = store.Create(ctx, testDraft("second", "s1"))
	require.NoError(t, err)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, "first", listed[0].Name)
	require.Equal(t, "second", listed[1].Name)
	require.Equal(t, ring, listed[0].Coordinates)
}

func TestUpdateReplacesMutableFieldsOnly(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testDraft("before", "s1"))
	require.NoError(t, err)

	revised := []polygon.Point{{0, 0}, {0, 2}, {2, 2}, {2, 0}}
	updated, err := store.Update(ctx, created.ID, polygon.Revision{Name: "after", Coordinates: revised})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, "after", updated.Name)
	require.Equal(t, revised, updated.Coordinates)
	require.Equal(t, "s1", updated.SessionID, "session id must survive updates")
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "after", listed[0].Name)
}

func TestUpdateUnknownIDFailsAndLeavesStoreUnchanged(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testDraft("keep", "s1"))
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID+999, polygon.Revision{Name: "Y", Coordinates: []polygon.Point{{0, 0}, {1, 1}, {2, 2}}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "keep", listed[0].Name)
}

func TestUpdateRejectsInvalidRevision(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testDraft("keep", "s1"))
	require.NoError(t, err)

	_, err = store.Update(ctx, created.ID, polygon.Revision{Name: "", Coordinates: created.Coordinates})
	require.ErrorIs(t, err, polygon.ErrInvalid)
}

func TestDeleteIsPermanentAndIdempotenceFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testDraft("gone", "s1"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, created.ID))
	require.ErrorIs(t, store.Delete(ctx, created.ID), storage.ErrNotFound)

	listed, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, testDraft("A", "s1"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, first.ID))

	second, err := store.Create(ctx, testDraft("B", "s1"))
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polygons.db")

	store, err := Open(path)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), testDraft("persisted", "s1"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, reopened.Close()) }()

	listed, err := reopened.List(context.Background())
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, "persisted", listed[0].Name)
}
