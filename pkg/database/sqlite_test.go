package database

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"post-reorder-backend/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) DatabaseInterface {
	t.Helper()
	db, err := NewDatabase(DatabaseConfig{
		Driver:      "sqlite",
		SQLitePath:  filepath.Join(t.TempDir(), "reorder.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedItems(t *testing.T, db DatabaseInterface, items ...models.Item) {
	t.Helper()
	for i := range items {
		require.NoError(t, db.CreateItem(context.Background(), &items[i]))
	}
}

func item(id int64, title string, menuOrder int) models.Item {
	return models.Item{ID: id, Title: title, PostType: "post", PostStatus: models.StatusPublish, MenuOrder: menuOrder}
}

func ids(items []models.Item) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

// storeContract runs the behaviour every DatabaseInterface implementation shares.
func storeContract(t *testing.T, db DatabaseInterface) {
	ctx := context.Background()
	page := item(5, "About", 9)
	page.PostType = "page"
	draft := item(6, "Draft", 9)
	draft.PostStatus = models.StatusDraft
	seedItems(t, db, item(1, "Charlie", 1), item(2, "Alpha", 3), item(3, "Bravo", 2), page, draft)

	t.Run("list", func(t *testing.T) {
		items, err := db.ListItems(ctx, models.ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 1}, ids(items), "menu_order DESC by default")

		items, err = db.ListItems(ctx, models.ListQuery{OrderBy: models.OrderByTitle, Direction: "asc"})
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 1}, ids(items))

		items, err = db.ListItems(ctx, models.ListQuery{OrderBy: models.OrderByID, Direction: "ASC"})
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, ids(items))

		items, err = db.ListItems(ctx, models.ListQuery{PostType: "page"})
		require.NoError(t, err)
		assert.Equal(t, []int64{5}, ids(items))
	})

	t.Run("get", func(t *testing.T) {
		it, err := db.GetItem(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", it.Title)
		assert.False(t, it.UpdatedAt.IsZero())

		_, err = db.GetItem(ctx, 404)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("scope", func(t *testing.T) {
		in, err := db.FilterInScope(ctx, "post", models.StatusPublish, []int64{1, 2, 5, 6, 404})
		require.NoError(t, err)
		assert.Equal(t, map[int64]bool{1: true, 2: true}, in)

		in, err = db.FilterInScope(ctx, "post", models.StatusPublish, nil)
		require.NoError(t, err)
		assert.Empty(t, in)
	})

	t.Run("apply", func(t *testing.T) {
		report := db.ApplyOrder(ctx, []models.OrderAssignment{
			{ID: 1, MenuOrder: 3},
			{ID: 404, MenuOrder: 2},
			{ID: 3, MenuOrder: 1},
		})
		assert.Equal(t, models.OutcomePartial, report.Outcome)
		assert.Equal(t, 2, report.Written)
		require.Len(t, report.Failures, 1)
		assert.Equal(t, int64(404), report.Failures[0].ID)

		items, err := db.ListItems(ctx, models.ListQuery{})
		require.NoError(t, err)
		// 2 keeps its value of 3 and ties with 1, id breaks the tie
		assert.Equal(t, []int64{1, 2, 3}, ids(items))

		page, err := db.GetItem(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, 9, page.MenuOrder, "other partitions untouched")
	})

	t.Run("parents", func(t *testing.T) {
		report := db.ApplyOrder(ctx, []models.OrderAssignment{
			{ID: 2, MenuOrder: 2, ParentID: 0, SetParent: true},
			{ID: 3, MenuOrder: 1, ParentID: 2, SetParent: true},
		})
		assert.Equal(t, models.OutcomeFull, report.Outcome)
		it, err := db.GetItem(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(2), it.ParentID)

		db.ApplyOrder(ctx, []models.OrderAssignment{{ID: 3, MenuOrder: 7}})
		it, err = db.GetItem(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, 7, it.MenuOrder)
		assert.Equal(t, int64(2), it.ParentID, "flat writes keep the parent")
	})

	t.Run("create assigns ids", func(t *testing.T) {
		it := item(0, "New", 0)
		require.NoError(t, db.CreateItem(ctx, &it))
		assert.Greater(t, it.ID, int64(6))
	})

	t.Run("create refuses a used id", func(t *testing.T) {
		dup := item(2, "Impostor", 0)
		dup.PostType = "page"
		err := db.CreateItem(ctx, &dup)
		assert.ErrorIs(t, err, ErrItemExists)

		it, err := db.GetItem(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", it.Title)
		assert.Equal(t, "post", it.PostType)

		pages, err := db.ListItems(ctx, models.ListQuery{PostType: "page"})
		require.NoError(t, err)
		assert.Equal(t, []int64{5}, ids(pages))
	})

		t.Run("health", func(t *testing.T) {
		assert.NoError(t, db.HealthCheck(ctx))
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, newTestSQLite(t))
}

func TestSQLiteScopeChunks(t *testing.T) {
	db := newTestSQLite(t)
	ctx := context.Background()

	var want []int64
	for i := int64(1); i <= sqliteScopeChunk+20; i++ {
		seedItems(t, db, item(i, fmt.Sprintf("post %d", i), 0))
		want = append(want, i)
	}
	in, err := db.FilterInScope(ctx, "post", models.StatusPublish, want)
	require.NoError(t, err)
	assert.Len(t, in, len(want))
}

func TestMigrateIsIdempotent(t *testing.T) {
	cfg := DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "m.db")}
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(cfg))
	require.NoError(t, Migrate(DatabaseConfig{Driver: "redis"}))
	assert.Error(t, Migrate(DatabaseConfig{Driver: "mongo"}))
}

func TestNewDatabaseUnknownDriver(t *testing.T) {
	db, err := NewDatabase(DatabaseConfig{Driver: "mongo"})
	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestSortItemsMatchesSQLOrdering(t *testing.T) {
	items := []models.Item{item(3, "b", 1), item(1, "c", 2), item(2, "a", 2)}

	sortItems(items, models.ListQuery{}.Normalized())
	assert.Equal(t, []int64{1, 2, 3}, ids(items))

	sortItems(items, models.ListQuery{OrderBy: models.OrderByTitle, Direction: "ASC"}.Normalized())
	assert.Equal(t, []int64{2, 3, 1}, ids(items))
}

func TestAddConnectionParams(t *testing.T) {
	assert.Equal(t, "postgres://u@h/db?connect_timeout=10", addConnectionParams("postgres://u@h/db", "connect_timeout=10"))
	assert.Equal(t, "postgres://u@h/db?sslmode=disable&connect_timeout=10", addConnectionParams("postgres://u@h/db?sslmode=disable", "connect_timeout=10"))
	assert.Equal(t, "host=h dbname=db connect_timeout=10", addConnectionParams("host=h dbname=db", "connect_timeout=10"))
}
