package provider_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"git.fiblab.net/sim/tilerouting/router/provider"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, c provider.HTTPClient, target, data string) *http.Response {
	resp, err := c.PostForm(target, url.Values{"data": {data}})
	require.NoError(t, err)
	return resp
}

func readAll(t *testing.T, resp *http.Response) string {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestCacheKey(t *testing.T) {
	a := provider.CacheKey("http://x/api", []byte("q1"))
	assert.Len(t, a, 64)
	assert.Equal(t, a, provider.CacheKey("http://x/api", []byte("q1")))
	assert.NotEqual(t, a, provider.CacheKey("http://x/api", []byte("q2")))
	assert.NotEqual(t, a, provider.CacheKey("http://y/api", []byte("q1")))
}

func TestCachingClient(t *testing.T) {
	var count atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	}))
	defer server.Close()

	cache, err := provider.NewFileCache(t.TempDir())
	require.NoError(t, err)
	c := provider.NewCachingClient(server.Client(), cache)

	// 上游收到完整的请求体
	assert.Equal(t, "data=q1", readAll(t, post(t, c, server.URL, "q1")))
	assert.Equal(t, "data=q1", readAll(t, post(t, c, server.URL, "q1")))
	assert.Equal(t, int64(1), count.Load())
	assert.Equal(t, "data=q2", readAll(t, post(t, c, server.URL, "q2")))
	assert.Equal(t, int64(2), count.Load())

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
	assert.Len(t, cache.Entries(), 2)
}

func TestCachingClientSkipsErrors(t *testing.T) {
	var count atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count.Add(1)
		http.Error(w, "busy", http.StatusGatewayTimeout)
	}))
	defer server.Close()

	cache, err := provider.NewFileCache(t.TempDir())
	require.NoError(t, err)
	c := provider.NewCachingClient(server.Client(), cache)
	for i := 0; i < 2; i++ {
		resp := post(t, c, server.URL, "q")
		assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
		resp.Body.Close()
	}
	assert.Equal(t, int64(2), count.Load())
	assert.Empty(t, cache.Entries())
}

func TestFileCacheReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	cache, err := provider.NewFileCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Put(ctx, "k", []byte("v")))

	cache, err = provider.NewFileCache(dir)
	require.NoError(t, err)
	data, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(data))
	entries := cache.Entries()
	assert.Contains(t, entries, "k")
	// 返回的是副本
	delete(entries, "k")
	assert.Contains(t, cache.Entries(), "k")

	_, ok, err = cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverpassThroughCache(t *testing.T) {
	var count atomic.Int64
	server := newOverpassServer(t, &count)
	cache, err := provider.NewFileCache(t.TempDir())
	require.NoError(t, err)
	o := provider.NewOverpass(server.URL, 2, provider.NewCachingClient(server.Client(), cache))

	bound := orb.Bound{Min: orb.Point{12.48, 55.68}, Max: orb.Point{12.51, 55.71}}
	first, err := o.FetchTile(context.Background(), bound)
	require.NoError(t, err)
	second, err := o.FetchTile(context.Background(), bound)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), count.Load())
}

func testCacheBackend(t *testing.T, cache provider.Cache) {
	ctx := context.Background()
	key := provider.CacheKey("test", []byte(time.Now().String()))
	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, cache.Put(ctx, key, []byte(`{"elements":[]}`)))
	// 重复写入不报错
	require.NoError(t, cache.Put(ctx, key, []byte(`{"elements":[]}`)))
	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"elements":[]}`, string(data))
	assert.NoError(t, cache.Close(ctx))
}

func TestMongoCache(t *testing.T) {
	uri := os.Getenv("ROUTING_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("ROUTING_TEST_MONGO_URI not set")
	}
	cache, err := provider.NewMongoCache(context.Background(), uri, "routing_test", "overpass_cache")
	require.NoError(t, err)
	testCacheBackend(t, cache)
}

func TestSQLCache(t *testing.T) {
	dsn := os.Getenv("ROUTING_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ROUTING_TEST_POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	cache, err := provider.NewSQLCacheFromDB(context.Background(), db)
	require.NoError(t, err)
	testCacheBackend(t, cache)
}
