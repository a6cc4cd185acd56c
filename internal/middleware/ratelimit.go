package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/hlog"
	"golang.org/x/time/rate"

	"github.com/zhouzirui/chatty/internal/model/chat"
	"github.com/zhouzirui/chatty/pkg/utils"
)

// pruneThreshold is how many tracked clients trigger a sweep of idle ones.
const pruneThreshold = 1024

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows each client IP max requests per window. The budget
// refills continuously, so a client that waits window/max gets one more.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter builds a limiter of max requests per window per client.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether key may proceed, and if not how long to wait.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= pruneThreshold {
		l.pruneLocked(now)
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rate.Every(l.window/time.Duration(l.max)), l.max)}
		l.clients[key] = c
	}
	c.lastSeen = now

	if c.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := c.limiter.ReserveN(now, 1)
	wait := r.DelayFrom(now)
	r.CancelAt(now)
	return false, wait
}

func (l *RateLimiter) pruneLocked(now time.Time) {
	for key, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, key)
		}
	}
}

// Middleware rejects over-budget clients with a 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		allowed, wait := l.Allow(key)
		if !allowed {
			seconds := int(math.Ceil(wait.Seconds()))
			hlog.FromRequest(r).Info().Str("client", key).Int("retry_after", seconds).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", fmt.Sprint(seconds))
			utils.RespondJSON(w, http.StatusTooManyRequests, chat.ChatResponse{
				Reply: fmt.Sprintf("[Rate limit exceeded, try again in %ds]", seconds),
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP uses RemoteAddr, which chi's RealIP middleware has already
// rewritten from forwarding headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		if r.RemoteAddr == "" {
			return "unknown"
		}
		return r.RemoteAddr
	}
	return host
}
