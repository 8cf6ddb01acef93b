package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nanocl-project/nanocld/internal/errors"
)

// rateLimiter throttles requests per client IP with a token bucket per key,
// so one noisy remote client can't starve the others on a shared TCP
// listener. Unix-socket connections (local, trusted callers) skip it.
type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newRateLimiter(requestsPerSecond float64, burst int) *rateLimiter {
	return &rateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *rateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (a *API) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		if !a.limiter.getLimiter(key).Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(time.Second.Seconds())))
			writeError(w, errors.New(errors.CodeInterrupted, "rate limit exceeded", http.StatusTooManyRequests))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetRateLimiter enables per-IP rate limiting on the /v1 route group, meant
// for the remote (TCP) listener; a daemon served solely over a Unix-domain
// socket should leave this unset.
func (a *API) SetRateLimiter(requestsPerSecond float64, burst int) {
	a.limiter = newRateLimiter(requestsPerSecond, burst)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
