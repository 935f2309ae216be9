package mealdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chefsire/internal/core/cache"
	"chefsire/internal/infrastructure/config"
	"chefsire/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{"meals":[
	{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole","strCategory":"Chicken","strArea":"Japanese",
	 "strInstructions":"Preheat oven.\r\nBake.","strIngredient1":"soy sauce","strMeasure1":"3/4 cup","strTags":"Meat,Casserole"},
	{"idMeal":"52773","strMeal":"Chicken Handi","strInstructions":"","strTags":null}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, c cache.Cache) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.MealDBConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, c)
}

func TestSearchByName(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.php", r.URL.Path)
		assert.Equal(t, "chicken pie", r.URL.Query().Get("s"))
		_, _ = w.Write([]byte(searchBody))
	}, nil)

	got, err := client.SearchByName(context.Background(), "chicken pie")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "52772", got[0].SourceID)
	assert.Equal(t, []string{"Preheat oven.", "Bake."}, got[0].Instructions)
	assert.Equal(t, []string{"Meat", "Casserole"}, got[0].Tags)
	assert.Nil(t, got[1].Tags)
}

func TestSearchByNameNoResults(t *testing.T) {
	for _, body := range []string{`{"meals":null}`, `{}`, `{"meals":"Invalid ID"}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}, nil)

		got, err := client.SearchByName(context.Background(), "zzz")
		require.NoError(t, err, body)
		assert.Empty(t, got, body)
		assert.NotNil(t, got, body)
	}
}

func TestLookupByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup.php", r.URL.Path)
		if r.URL.Query().Get("i") == "52772" {
			_, _ = w.Write([]byte(searchBody))
			return
		}
		_, _ = w.Write([]byte(`{"meals":null}`))
	}, nil)

	got, err := client.LookupByID(context.Background(), "52772")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Teriyaki Chicken Casserole", got.Title)

	missing, err := client.LookupByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpstreamFailures(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("s") {
		case "500":
			w.WriteHeader(http.StatusInternalServerError)
		case "garbage":
			_, _ = w.Write([]byte(`<html>`))
		}
	}, nil)

	_, err := client.SearchByName(context.Background(), "500")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)

	_, err = client.SearchByName(context.Background(), "garbage")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)

	unreachable := NewClient(&config.MealDBConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second}, nil)
	_, err = unreachable.LookupByID(context.Background(), "1")
	assert.ErrorIs(t, err, common.ErrUpstreamUnavailable)
}

func TestResponsesAreCached(t *testing.T) {
	var calls atomic.Int32
	mem := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("s") == "bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}, mem)

	for i := 0; i < 3; i++ {
		got, err := client.SearchByName(context.Background(), "chicken")
		require.NoError(t, err)
		assert.Len(t, got, 2)
	}
	assert.Equal(t, int32(1), calls.Load())

	// 失敗的回應不寫入快取
	for i := 0; i < 2; i++ {
		_, err := client.SearchByName(context.Background(), "bad")
		assert.Error(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestLookupBypassesCache(t *testing.T) {
	var calls atomic.Int32
	mem := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		title := "Old Title"
		if calls.Add(1) > 1 {
			title = "New Title"
		}
		_, _ = w.Write([]byte(`{"meals":[{"idMeal":"1","strMeal":"` + title + `"}]}`))
	}, mem)

	first, err := client.LookupByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Old Title", first.Title)

	second, err := client.LookupByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "New Title", second.Title)
	assert.Equal(t, int32(2), calls.Load())
}
