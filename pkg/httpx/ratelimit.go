package httpx

import (
	"net/http"
	"sync"
	"time"

	"github.com/lumonlab/crecheauth/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Common rate limit profiles for different endpoint types.
var (
	// StrictLimit for credential-bearing endpoints (brute force prevention).
	StrictLimit = RateLimitConfig{
		RequestsPerWindow: 10,
		Window:            time.Minute,
		Burst:             10,
	}

	// ModerateLimit for authenticated operations.
	ModerateLimit = RateLimitConfig{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		Burst:             60,
	}
)

// RateLimitMiddleware limits requests per client IP using a token bucket.
// Entries idle for over an hour are evicted to bound memory.
func RateLimitMiddleware(cfg RateLimitConfig) Middleware {
	rl := &ipRateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientLimiter),
	}
	go rl.evictLoop()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !rl.allow(key) {
				slogx.FromContext(r.Context()).Warn("rate limit exceeded", "key", key)
				w.Header().Set("Retry-After", "60")
				WriteError(w, http.StatusTooManyRequests,
					"rate_limited", "Too many requests, slow down")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type ipRateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

func (rl *ipRateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		perSecond := rate.Limit(float64(rl.cfg.RequestsPerWindow) / rl.cfg.Window.Seconds())
		cl = &clientLimiter{limiter: rate.NewLimiter(perSecond, rl.cfg.Burst)}
		rl.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter.Allow()
}

func (rl *ipRateLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		rl.mu.Lock()
		for key, cl := range rl.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.clients, key)
			}
		}
		rl.mu.Unlock()
	}
}
