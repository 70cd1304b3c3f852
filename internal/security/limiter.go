// Package security throttles per-key traffic with token buckets.
package security

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	bucketExpiry    = time.Hour
)

// RateLimitManager keeps one token bucket per key and evicts buckets that
// have been idle for bucketExpiry.
type RateLimitManager struct {
	limiters map[string]*bucket
	mu       sync.Mutex
	log      *zap.Logger
	stopOnce sync.Once
	stop     chan struct{}
}

type bucket struct {
	limiter     *rate.Limiter
	rate        rate.Limit
	burst       int
	lastRequest time.Time
}

func NewRateLimitManager(log *zap.Logger) *RateLimitManager {
	rlm := &RateLimitManager{
		limiters: make(map[string]*bucket),
		log:      log,
		stop:     make(chan struct{}),
	}
	go rlm.cleanupLoop()
	return rlm
}

// Allow consumes a token from key's bucket, creating or resizing the bucket
// to (r, burst) first.
func (rlm *RateLimitManager) Allow(key string, r rate.Limit, burst int) bool {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()

	b, ok := rlm.limiters[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r, burst), rate: r, burst: burst}
		rlm.limiters[key] = b
	} else if b.rate != r || b.burst != burst {
		b.rate, b.burst = r, burst
		b.limiter.SetLimit(r)
		b.limiter.SetBurst(burst)
	}

	allowed := b.limiter.Allow()
	if allowed {
		b.lastRequest = time.Now()
	} else {
		rlm.log.Debug("rate limit exceeded", zap.String("key", key))
	}
	return allowed
}

// Forget drops key's bucket, e.g. when its connection goes away.
func (rlm *RateLimitManager) Forget(key string) {
	rlm.mu.Lock()
	delete(rlm.limiters, key)
	rlm.mu.Unlock()
}

func (rlm *RateLimitManager) Stop() {
	rlm.stopOnce.Do(func() { close(rlm.stop) })
}

func (rlm *RateLimitManager) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rlm.cleanup(time.Now())
		case <-rlm.stop:
			return
		}
	}
}

func (rlm *RateLimitManager) cleanup(now time.Time) int {
	rlm.mu.Lock()
	defer rlm.mu.Unlock()

	removed := 0
	for key, b := range rlm.limiters {
		if now.Sub(b.lastRequest) > bucketExpiry {
			delete(rlm.limiters, key)
			removed++
		}
	}
	if removed > 0 {
		rlm.log.Info("evicted idle rate limit buckets",
			zap.Int("removed", removed), zap.Int("remaining", len(rlm.limiters)))
	}
	return removed
}
