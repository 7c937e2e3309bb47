// Package ratelimit spaces out page loads per host. One Limiter is shared by
// every crawl in the process, so concurrent imports of the same site still
// respect the politeness interval.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/receptionist-onboarding/internal/metrics"
)

// Limiter manages per-host token buckets.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
}

// Config holds rate limiter configuration.
type Config struct {
	// Interval is the minimum spacing between loads of one host. Zero disables waiting.
	Interval time.Duration
	Burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	every := rate.Inf
	if cfg.Interval > 0 {
		every = rate.Every(cfg.Interval)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		every:    every,
		burst:    burst,
	}
}

// Wait blocks until rawURL's host may be loaded again or ctx ends.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.every == rate.Inf {
		return nil
	}
	host := hostOf(rawURL)
	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.every, l.burst)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObservePolitenessWait(rawURL, waited)
	}
	return nil
}

// Hosts reports how many hosts currently have a bucket.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
