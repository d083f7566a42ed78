package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Togather-Foundation/gallery/internal/api/problem"
	"github.com/Togather-Foundation/gallery/internal/config"
)

type RateLimitTier string

const (
	TierPublic     RateLimitTier = "public"
	TierAdmin      RateLimitTier = "admin"
	TierSubmission RateLimitTier = "submission"
)

// RateLimiter holds token buckets per tier and caller. Zero or negative
// limits disable a tier.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limits   map[RateLimitTier]rate.Limit
	bursts   map[RateLimitTier]int
	now      func() time.Time
	ttl      time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limits:   make(map[RateLimitTier]rate.Limit),
		bursts:   make(map[RateLimitTier]int),
		now:      time.Now,
		ttl:      2 * time.Hour,
	}
	rl.set(TierPublic, cfg.PublicPerMinute, time.Minute)
	rl.set(TierAdmin, cfg.AdminPerMinute, time.Minute)
	rl.set(TierSubmission, cfg.SubmissionsPerHour, time.Hour)
	return rl
}

func (rl *RateLimiter) set(tier RateLimitTier, n int, per time.Duration) {
	if n <= 0 {
		return
	}
	rl.limits[tier] = rate.Every(per / time.Duration(n))
	rl.bursts[tier] = n
}

// reserve takes a token for key. It returns zero when the request may
// proceed, otherwise how long the caller should wait.
func (rl *RateLimiter) reserve(tier RateLimitTier, key string) time.Duration {
	limit, ok := rl.limits[tier]
	if !ok {
		return 0
	}
	now := rl.now()
	lookup := string(tier) + ":" + key

	rl.mu.Lock()
	entry, ok := rl.limiters[lookup]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(limit, rl.bursts[tier])}
		rl.limiters[lookup] = entry
	}
	entry.lastSeen = now
	rl.mu.Unlock()

	if entry.limiter.AllowN(now, 1) {
		return 0
	}
	// Time until one token is back in the bucket.
	missing := 1 - entry.limiter.TokensAt(now)
	delay := time.Duration(missing * float64(time.Second) / float64(limit))
	if delay < time.Second {
		delay = time.Second
	}
	return delay
}

// Sweep drops buckets not used within the TTL.
func (rl *RateLimiter) Sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.ttl)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

// Run sweeps periodically until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}

// ByClientIP limits requests per remote address.
func (rl *RateLimiter) ByClientIP(tier RateLimitTier, env string) func(http.Handler) http.Handler {
	return rl.middleware(tier, env, func(r *http.Request) string {
		return remoteIP(r)
	})
}

// ByProfile limits requests per authenticated profile. It must run after
// Authenticate; anonymous requests fall back to the remote address.
func (rl *RateLimiter) ByProfile(tier RateLimitTier, env string) func(http.Handler) http.Handler {
	return rl.middleware(tier, env, func(r *http.Request) string {
		if profile := ProfileFromContext(r.Context()); profile != nil {
			return "profile:" + profile.ID
		}
		return remoteIP(r)
	})
}

func (rl *RateLimiter) middleware(tier RateLimitTier, env string, key func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
				next.ServeHTTP(w, r)
				return
			}
			if wait := rl.reserve(tier, key(r)); wait > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func remoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
