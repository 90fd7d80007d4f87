package ratelimit

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coupondrop/lib/api/remote"
	"coupondrop/lib/api/response"
	"coupondrop/lib/sl"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"
)

const idleEviction = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per source IP. It bounds request volume
// before a claim reaches the allocator and is independent of the abuse
// guard's claim-history window.
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func NewLimiter(perMinute, burst int) *Limiter {
	l := &Limiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
	go l.evictLoop()
	return l
}

func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

func (l *Limiter) evictLoop() {
	for range time.Tick(time.Minute) {
		l.mu.Lock()
		for key, v := range l.visitors {
			if time.Since(v.lastSeen) > idleEviction {
				delete(l.visitors, key)
			}
		}
		l.mu.Unlock()
	}
}

// New wraps a route group with the per-IP limiter.
func New(log *slog.Logger, limiter *Limiter) func(next http.Handler) http.Handler {
	mod := sl.Module("middleware.ratelimit")

	return func(next http.Handler) http.Handler {

		fn := func(w http.ResponseWriter, r *http.Request) {
			ip := remote.IP(r)
			if !limiter.Allow(ip) {
				log.With(
					mod,
					slog.String("remote_addr", ip),
					slog.String("path", r.URL.Path),
				).Debug("request rate exceeded")
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Error("Too many requests, please wait before trying again."))
				return
			}
			next.ServeHTTP(w, r)
		}

		return http.HandlerFunc(fn)
	}
}
