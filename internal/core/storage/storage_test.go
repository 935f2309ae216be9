package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chefsire/internal/core/recipe"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/infrastructure/database"
	"chefsire/internal/pkg/common"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

type testStore interface {
	recipe.Store
	Ping(ctx context.Context) error
}

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:      "sqlite",
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		AutoMigrate: true,
	}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return NewGormStore(db)
}

func forEachStore(t *testing.T, fn func(t *testing.T, store testStore)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func externalRecipe(id, sourceID, title string, created time.Time) *recipe.Recipe {
	return &recipe.Recipe{
		ID:           id,
		Source:       recipe.SourceExternal,
		SourceID:     common.StringPtr(sourceID),
		Title:        title,
		ImageURL:     common.StringPtr("https://img/" + sourceID),
		Ingredients:  datatypes.JSONSlice[recipe.Ingredient]{{Name: "Water", Measure: common.StringPtr("1 cup")}},
		Instructions: datatypes.JSONSlice[string]{"Boil."},
		SearchText:   recipe.BuildSearchText(title, nil, nil, []recipe.Ingredient{{Name: "Water"}}, nil),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func userRecipe(id, title string, created time.Time) *recipe.Recipe {
	return &recipe.Recipe{
		ID:           id,
		Source:       recipe.SourceUser,
		Title:        title,
		Ingredients:  datatypes.JSONSlice[recipe.Ingredient]{{Name: "Salt"}},
		Instructions: datatypes.JSONSlice[string]{"Mix."},
		SearchText:   recipe.BuildSearchText(title, nil, nil, []recipe.Ingredient{{Name: "Salt"}}, nil),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestStoreInsertAndFind(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		ctx := context.Background()
		rec := externalRecipe("r1", "52", "Tea", baseTime)
		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.FindByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "Tea", got.Title)
		assert.Equal(t, "52", *got.SourceID)
		assert.Equal(t, []recipe.Ingredient{{Name: "Water", Measure: common.StringPtr("1 cup")}}, []recipe.Ingredient(got.Ingredients))
		assert.Equal(t, []string{"Boil."}, []string(got.Instructions))
		assert.Nil(t, got.Tags)
		assert.Nil(t, got.Category)
		assert.True(t, baseTime.Equal(got.CreatedAt))

		got, err = store.FindBySourceIdentity(ctx, recipe.SourceExternal, "52")
		require.NoError(t, err)
		assert.Equal(t, "r1", got.ID)

		_, err = store.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = store.FindBySourceIdentity(ctx, recipe.SourceExternal, "53")
		assert.ErrorIs(t, err, common.ErrNotFound)
		_, err = store.FindBySourceIdentity(ctx, recipe.SourceUser, "52")
		assert.ErrorIs(t, err, common.ErrNotFound)

		assert.NoError(t, store.Ping(ctx))
	})
}

func TestStoreEnforcesSourceIdentity(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		ctx := context.Background()
		require.NoError(t, store.Insert(ctx, externalRecipe("r1", "52", "Tea", baseTime)))

		err := store.Insert(ctx, externalRecipe("r2", "52", "Tea again", baseTime))
		assert.ErrorIs(t, err, common.ErrConstraintViolation)

		// 使用者食譜沒有 sourceId，不受唯一鍵限制
		require.NoError(t, store.Insert(ctx, userRecipe("u1", "Toast", baseTime)))
		require.NoError(t, store.Insert(ctx, userRecipe("u2", "Toast", baseTime)))
	})
}

func TestStoreUpdate(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		ctx := context.Background()
		rec := externalRecipe("r1", "52", "Tea", baseTime)
		require.NoError(t, store.Insert(ctx, rec))

		rec.Title = "Green Tea"
		rec.Tags = datatypes.JSONSlice[string]{"Hot"}
		rec.ImageURL = nil
		rec.UpdatedAt = baseTime.Add(time.Hour)
		require.NoError(t, store.Update(ctx, rec))

		got, err := store.FindByID(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "Green Tea", got.Title)
		assert.Equal(t, []string{"Hot"}, []string(got.Tags))
		assert.Nil(t, got.ImageURL)
		assert.True(t, baseTime.Add(time.Hour).Equal(got.UpdatedAt))
		assert.True(t, baseTime.Equal(got.CreatedAt))

		err = store.Update(ctx, externalRecipe("nope", "99", "Ghost", baseTime))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestStoreTextSearch(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		ctx := context.Background()
		require.NoError(t, store.Insert(ctx, userRecipe("a", "Apple Pie", baseTime)))
		require.NoError(t, store.Insert(ctx, userRecipe("b", "Banana Bread", baseTime.Add(time.Minute))))
		require.NoError(t, store.Insert(ctx, userRecipe("c", "Apple 100% Juice", baseTime.Add(2*time.Minute))))

		all, err := store.TextSearch(ctx, "", 10, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"c", "b", "a"}, ids(all))

		apples, err := store.TextSearch(ctx, " APPLE ", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a"}, ids(apples))

		percent, err := store.TextSearch(ctx, "100%", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(percent))

		wildcard, err := store.TextSearch(ctx, "%", 10, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, ids(wildcard))

		page, err := store.TextSearch(ctx, "", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, ids(page))

		empty, err := store.TextSearch(ctx, "", 10, 10)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})
}

func TestConcurrentImportsCreateOneRow(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		source := &staticSource{meal: recipe.Normalized{
			SourceID:     "52772",
			Title:        "Teriyaki Chicken Casserole",
			Ingredients:  []recipe.Ingredient{{Name: "soy sauce", Measure: common.StringPtr("3/4 cup")}},
			Instructions: []string{"Preheat oven."},
			SearchText:   "teriyaki chicken casserole soy sauce",
		}}
		svc := recipe.NewService(store, source)

		const n = 16
		var wg sync.WaitGroup
		results := make([]*recipe.Recipe, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = svc.Import(context.Background(), recipe.ImportRequest{SourceID: "52772"})
			}(i)
		}
		wg.Wait()

		for i := 0; i < n; i++ {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0].ID, results[i].ID)
		}

		rows, err := store.TextSearch(context.Background(), "", 100, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestImportTwiceRefreshesUpdatedAt(t *testing.T) {
	forEachStore(t, func(t *testing.T, store testStore) {
		source := &staticSource{meal: recipe.Normalized{SourceID: "1", Title: "Tea", SearchText: "tea"}}
		svc := recipe.NewService(store, source)
		ctx := context.Background()

		first, err := svc.Import(ctx, recipe.ImportRequest{SourceID: "1"})
		require.NoError(t, err)
		second, err := svc.Import(ctx, recipe.ImportRequest{SourceID: "1"})
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

		stored, err := store.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.True(t, second.UpdatedAt.Equal(stored.UpdatedAt))
	})
}

type staticSource struct {
	meal recipe.Normalized
}

func (s *staticSource) SearchByName(context.Context, string) ([]recipe.Normalized, error) {
	return []recipe.Normalized{s.meal}, nil
}

func (s *staticSource) LookupByID(context.Context, string) (*recipe.Normalized, error) {
	m := s.meal
	return &m, nil
}

func ids(rows []recipe.Recipe) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}
