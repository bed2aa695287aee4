package web

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// rateLimiter tracks failed API key attempts per IP. Entries with no
// failure inside the window are dropped.
type rateLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	lastSweep time.Time
	now       func() time.Time
}

const (
	rateLimitWindow  = 1 * time.Minute
	rateLimitMaxFail = 10
)

func newRateLimiter() *rateLimiter {
	return &rateLimiter{attempts: make(map[string][]time.Time), now: time.Now}
}

// prune drops ip's failures older than cutoff and forgets ip when none remain.
// Callers hold mu.
func (rl *rateLimiter) prune(ip string, cutoff time.Time) []time.Time {
	valid := rl.attempts[ip][:0]
	for _, t := range rl.attempts[ip] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	if len(valid) == 0 {
		delete(rl.attempts, ip)
		return nil
	}
	rl.attempts[ip] = valid
	return valid
}

// sweep prunes every IP at most once per window. Callers hold mu.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rateLimitWindow {
		return
	}
	rl.lastSweep = now
	cutoff := now.Add(-rateLimitWindow)
	for ip := range rl.attempts {
		rl.prune(ip, cutoff)
	}
}

// recordFailure records a failed attempt and returns true if rate limited.
func (rl *rateLimiter) recordFailure(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	valid := append(rl.prune(ip, now.Add(-rateLimitWindow)), now)
	rl.attempts[ip] = valid

	return len(valid) > rateLimitMaxFail
}

// limited reports whether ip is over the failure budget without recording anything.
func (rl *rateLimiter) limited(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	return len(rl.prune(ip, now.Add(-rateLimitWindow))) > rateLimitMaxFail
}

// tracked reports how many IPs currently have failures on record.
func (rl *rateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

// requireAPIKey checks Bearer token auth against the admin API key.
// When no key is configured the route is open unless strict is set, in which
// case it is refused. Returns 401 for missing/invalid keys, 429 for
// rate-limited IPs.
func (s *Server) requireAPIKey(strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.adminAPIKey == "" {
				if strict {
					apiError(w, "admin API key not configured", http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			if s.keyLimiter.limited(ip) {
				apiError(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				apiError(w, "authorization required", http.StatusUnauthorized)
				return
			}

			key := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
				s.keyLimiter.recordFailure(ip)
				apiError(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
