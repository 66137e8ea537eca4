package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tienda/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Sliding-window limiter per client IP ──────────────────────────────────────

type ipEntry struct {
	count     int
	windowEnd time.Time
}

// IPLimiter counts requests per IP within a fixed window.
type IPLimiter struct {
	limit  int
	window time.Duration
	msg    string

	mu      sync.Mutex
	entries map[string]*ipEntry
	now     func() time.Time
}

func NewIPLimiter(limit int, window time.Duration, msg string) *IPLimiter {
	return &IPLimiter{limit: limit, window: window, msg: msg, entries: make(map[string]*ipEntry), now: time.Now}
}

// allow registers one hit for ip and reports whether it is within the limit.
func (l *IPLimiter) allow(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[ip]
	if !ok || now.After(e.windowEnd) {
		e = &ipEntry{windowEnd: now.Add(l.window)}
		l.entries[ip] = e
	}
	e.count++
	return e.count <= l.limit, e.windowEnd
}

func (l *IPLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, windowEnd := l.allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.WithCode(apierror.CodeRateLimit, l.msg))
			return
		}
		c.Next()
	}
}

// purge drops expired entries so IPs that never return don't accumulate.
func (l *IPLimiter) purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for ip, e := range l.entries {
		if now.After(e.windowEnd) {
			delete(l.entries, ip)
			n++
		}
	}
	return n
}

const purgeInterval = 5 * time.Minute

// StartPurge removes expired entries of every limiter until ctx is cancelled.
func StartPurge(ctx context.Context, limiters ...*IPLimiter) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				total := 0
				for _, l := range limiters {
					total += l.purge()
				}
				if total > 0 {
					log.Debug().Int("entries_purged", total).Msg("rate limiter maps purged")
				}
			}
		}
	}()
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() *IPLimiter {
	return NewIPLimiter(20, time.Minute, "Demasiados intentos de login. Intente en 1 minuto.")
}

// APIRateLimiter is the general limiter for the storefront API.
func APIRateLimiter(limit int, window time.Duration) *IPLimiter {
	return NewIPLimiter(limit, window, "Demasiadas solicitudes. Intente nuevamente en un momento.")
}
