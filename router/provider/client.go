package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

// Cache stores raw upstream response bodies by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte) error
	Close(ctx context.Context) error
}

// CacheKey is the hex sha256 of url, request body and SCHEMA_VERSION.
func CacheKey(target string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(target))
	h.Write([]byte{0})
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(SCHEMA_VERSION))
	return hex.EncodeToString(h.Sum(nil))
}

// CachingClient serves repeated upstream requests from a Cache. Only 200
// responses are stored. Cache failures are logged and the request goes
// upstream.
type CachingClient struct {
	upstream HTTPClient
	cache    Cache

	hits   atomic.Int64
	misses atomic.Int64
}

func NewCachingClient(upstream HTTPClient, cache Cache) *CachingClient {
	return &CachingClient{upstream: upstream, cache: cache}
}

func (c *CachingClient) PostForm(target string, data url.Values) (*http.Response, error) {
	ctx := context.Background()
	key := CacheKey(target, []byte(data.Encode()))

	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Warnf("cache get %s failed: %v", key, err)
	} else if ok {
		c.hits.Add(1)
		log.Debugf("cache hit %s", key)
		return &http.Response{
			Status:        "200 OK",
			StatusCode:    http.StatusOK,
			Proto:         "HTTP/1.1",
			ProtoMajor:    1,
			ProtoMinor:    1,
			Header:        http.Header{"Content-Type": []string{"application/json"}},
			Body:          io.NopCloser(bytes.NewReader(body)),
			ContentLength: int64(len(body)),
		}, nil
	}
	c.misses.Add(1)

	resp, err := c.upstream.PostForm(target, data)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, nil
	}
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err := c.cache.Put(ctx, key, body); err != nil {
		log.Warnf("cache put %s failed: %v", key, err)
	}
	return resp, nil
}

// Stats returns the number of cache hits and misses so far.
func (c *CachingClient) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *CachingClient) Close(ctx context.Context) error {
	return c.cache.Close(ctx)
}
