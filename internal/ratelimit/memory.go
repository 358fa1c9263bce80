package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     float64
	lastAccess time.Time
}

// Buckets keeps an in-memory token bucket per key. A background goroutine
// evicts keys idle for staleAfter.
type Buckets struct {
	perSecond float64
	burst     float64
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	done     chan struct{}
}

const staleAfter = 10 * time.Minute

// NewBuckets allows perMinute actions per key on average, with bursts of up
// to burst. Call Close to stop the eviction goroutine.
func NewBuckets(perMinute, burst int) *Buckets {
	b := &Buckets{
		perSecond: float64(perMinute) / 60,
		burst:     float64(burst),
		now:       time.Now,
		buckets:   make(map[string]*bucket),
		done:      make(chan struct{}),
	}
	go b.evictLoop()
	return b
}

// Allow implements Limiter.
func (b *Buckets) Allow(key string) (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	bk, ok := b.buckets[key]
	if !ok {
		b.buckets[key] = &bucket{tokens: b.burst - 1, lastAccess: now}
		return true, 0
	}

	bk.tokens = min(b.burst, bk.tokens+now.Sub(bk.lastAccess).Seconds()*b.perSecond)
	bk.lastAccess = now

	if bk.tokens < 1 {
		if b.perSecond <= 0 {
			return false, staleAfter
		}
		wait := time.Duration((1 - bk.tokens) / b.perSecond * float64(time.Second))
		return false, wait
	}
	bk.tokens--
	return true, 0
}

// Close stops the eviction goroutine. Safe to call more than once.
func (b *Buckets) Close() error {
	b.stopOnce.Do(func() { close(b.done) })
	return nil
}

func (b *Buckets) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.evict()
		}
	}
}

func (b *Buckets) evict() {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff := b.now().Add(-staleAfter)
	for key, bk := range b.buckets {
		if bk.lastAccess.Before(cutoff) {
			delete(b.buckets, key)
		}
	}
}
