package httpx

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

type visitor struct {
	count       int
	windowStart time.Time
}

// WithRateLimit is a fixed-window per-client limiter backed by process
// memory. Good enough for a single instance; use WithRedisRateLimit when
// running more than one replica.
func WithRateLimit(limit int, window time.Duration) Middleware {
	var (
		mu       sync.Mutex
		visitors = map[string]*visitor{}
	)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			now := time.Now()

			mu.Lock()
			v, ok := visitors[key]
			if !ok || now.Sub(v.windowStart) >= window {
				v = &visitor{windowStart: now}
				visitors[key] = v
			}
			v.count++
			over := v.count > limit
			mu.Unlock()

			if over {
				w.Header().Set("Retry-After", window.String())
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientKey prefers the first X-Forwarded-For hop, falling back to the peer
// address without the port.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	addr := r.RemoteAddr
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		return addr[:i]
	}
	return addr
}
