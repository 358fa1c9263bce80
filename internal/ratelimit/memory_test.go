package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBuckets(t *testing.T, perMinute, burst int) (*Buckets, *clock) {
	t.Helper()
	b := NewBuckets(perMinute, burst)
	t.Cleanup(func() { _ = b.Close() })
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	b.now = c.now
	return b, c
}

func TestBucketsBurstThenDeny(t *testing.T) {
	b, _ := newTestBuckets(t, 6, 3)
	for i := range 3 {
		ok, _ := b.Allow("operator:alice")
		require.True(t, ok, "request %d is within the burst", i)
	}
	ok, wait := b.Allow("operator:alice")
	assert.False(t, ok)
	// 6 per minute refills one token every 10s.
	assert.Equal(t, 10*time.Second, wait)
}

func TestBucketsRefill(t *testing.T) {
	b, c := newTestBuckets(t, 6, 1)
	ok, _ := b.Allow("k")
	require.True(t, ok)
	ok, _ = b.Allow("k")
	require.False(t, ok)

	c.advance(10 * time.Second)
	ok, _ = b.Allow("k")
	assert.True(t, ok)
}

func TestBucketsCapAtBurst(t *testing.T) {
	b, c := newTestBuckets(t, 60, 2)
	_, _ = b.Allow("k")
	c.advance(time.Hour)

	for range 2 {
		ok, _ := b.Allow("k")
		require.True(t, ok)
	}
	ok, _ := b.Allow("k")
	assert.False(t, ok, "a long idle period refills only up to the burst")
}

func TestBucketsIndependentKeys(t *testing.T) {
	b, _ := newTestBuckets(t, 1, 1)
	ok, _ := b.Allow("a")
	require.True(t, ok)
	ok, _ = b.Allow("a")
	require.False(t, ok)

	ok, _ = b.Allow("b")
	assert.True(t, ok)
}

func TestBucketsConcurrent(t *testing.T) {
	b, _ := newTestBuckets(t, 60, 20)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 10 {
		wg.Go(func() {
			for range 10 {
				if ok, _ := b.Allow("shared"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		})
	}
	wg.Wait()
	assert.Equal(t, 20, allowed)
}

func TestBucketsEvict(t *testing.T) {
	b, c := newTestBuckets(t, 6, 3)
	_, _ = b.Allow("stale")
	c.advance(staleAfter + time.Second)
	_, _ = b.Allow("recent")

	b.evict()

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.NotContains(t, b.buckets, "stale")
	assert.Contains(t, b.buckets, "recent")
}

func TestBucketsCloseTwice(t *testing.T) {
	b := NewBuckets(6, 3)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestMiddleware(t *testing.T) {
	b, _ := newTestBuckets(t, 6, 1)
	var served int
	h := Middleware(b, RemoteIP, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		served++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/agent/start", nil)
	req.RemoteAddr = "10.0.0.7:51234"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, served)

	// A different client has its own bucket.
	req.RemoteAddr = "10.0.0.8:51234"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	h := Middleware(nil, RemoteIP, nil)(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[::1]:8080"
	assert.Equal(t, "::1", RemoteIP(req))
	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", RemoteIP(req))
}
