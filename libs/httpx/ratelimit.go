package httpx

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// RateLimiter is a fixed-window limiter kept in process memory.
type RateLimiter struct {
	limit   int
	window  time.Duration
	now     func() time.Time
	mu      sync.Mutex
	windows map[string]*fixedWindow
}

type fixedWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: map[string]*fixedWindow{},
	}
}

func (rl *RateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.allow(clientKey(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	win := rl.windows[key]
	if win == nil || now.After(win.resetAt) {
		rl.windows[key] = &fixedWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if win.count >= rl.limit {
		return false
	}
	win.count++
	return true
}

// clientKey prefers the salon scope so one busy front desk cannot starve another
// salon behind the same NAT.
func clientKey(r *http.Request) string {
	if salon := strings.TrimSpace(r.Header.Get(SalonIDHeader)); salon != "" {
		return "salon:" + salon
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return "ip:" + strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return "ip:" + host
	}
	return "ip:" + r.RemoteAddr
}
