package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// FixedWindowLimiter admits up to permits requests per window. Excess
// requests queue (oldest first, up to queueLimit) and are released when a
// later window has room; beyond the queue they are rejected with 429.
// The limiter is global, not per-client: it throttles total traffic to the
// endpoints it fronts.
type FixedWindowLimiter struct {
	mu          sync.Mutex
	permits     int
	window      time.Duration
	queueLimit  int
	windowStart time.Time
	reserved    int // admissions granted for the current and future windows
}

func NewFixedWindowLimiter(permits int, window time.Duration, queueLimit int) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		permits:     permits,
		window:      window,
		queueLimit:  queueLimit,
		windowStart: time.Now(),
	}
}

// admitAfter reserves a slot. It returns how long the caller must wait before
// proceeding (zero when the current window has room) and false when the queue
// is full. Earlier callers get earlier slots, so queued requests drain oldest
// first.
func (l *FixedWindowLimiter) admitAfter() (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for now.Sub(l.windowStart) >= l.window {
		l.windowStart = l.windowStart.Add(l.window)
		l.reserved -= l.permits
		if l.reserved < 0 {
			l.reserved = 0
		}
	}

	if l.reserved < l.permits {
		l.reserved++
		return 0, true
	}
	if l.reserved-l.permits >= l.queueLimit {
		return 0, false
	}
	l.reserved++
	slot := (l.reserved - 1) / l.permits // whole windows ahead of the current one
	return l.windowStart.Add(time.Duration(slot) * l.window).Sub(now), true
}

// release hands back a reservation whose holder gave up waiting, so the slot
// can admit a later caller instead of burning a permit in a future window.
func (l *FixedWindowLimiter) release() {
	l.mu.Lock()
	if l.reserved > 0 {
		l.reserved--
	}
	l.mu.Unlock()
}

// Limit is the middleware handler enforcing the fixed window.
func (l *FixedWindowLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delay, ok := l.admitAfter()
		if !ok {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		if delay > 0 {
			t := time.NewTimer(delay)
			defer t.Stop()
			select {
			case <-t.C:
			case <-r.Context().Done():
				l.release()
				writeJSONError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token-bucket rate limiter with automatic stale-entry cleanup.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter creates a per-IP limiter: r requests/second, burst up to burst requests.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes.
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		rl.mu.Lock()
		for ip, v := range rl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Limit is the middleware handler that enforces the rate limit per remote IP.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(realIP(r)).Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// realIP resolves the client address, preferring proxy headers over RemoteAddr.
func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xrip := r.Header.Get("X-Real-Ip"); xrip != "" {
		return xrip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
