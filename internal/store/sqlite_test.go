package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCacheRoundTripAndExpiry(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.CacheSet(ctx, "recipes:random::1", `[{"recipeId":1}]`, now.Add(time.Minute)))

	v, ok, err := db.CacheGet(ctx, "recipes:random::1", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"recipeId":1}]`, v)

	_, ok, err = db.CacheGet(ctx, "recipes:random::1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.CacheSet(ctx, "recipes:random::1", `[]`, now.Add(time.Hour)))
	v, ok, err = db.CacheGet(ctx, "recipes:random::1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)
}

func TestCachePurge(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, db.CacheSet(ctx, "old", "1", now.Add(-time.Second)))
	require.NoError(t, db.CacheSet(ctx, "fresh", "2", now.Add(time.Hour)))

	n, err := db.CachePurge(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := db.CacheGet(ctx, "fresh", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEventAndRequestWrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.Event("info", "startup", "Server starting", map[string]interface{}{"http_addr": ":8080"})
	require.NoError(t, db.Req(ctx, time.Now(), "t1", "r1", "http.chat", "m", "pasta", "abc", "Recipe", "success", 2, 1500.25, "ok", ""))

	var events, requests int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&events))
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&requests))
	assert.Equal(t, 1, events)
	assert.Equal(t, 1, requests)

	var durMs float64
	require.NoError(t, db.QueryRow(`SELECT dur_ms FROM requests`).Scan(&durMs))
	assert.Equal(t, 1500.25, durMs)
}
