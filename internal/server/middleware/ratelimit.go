package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sunho-park/poswatch/internal/domain"
)

// RateLimit caps how often a single client may hit the wrapped handler:
// `limit` requests per `window`, keyed by client IP. TradingView retries
// aggressively on slow responses, so a limiter failure lets the request
// through rather than dropping alerts.
func RateLimit(limiter domain.RateLimiter, limit int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), "webhook:"+clientIP(r), limit, window)
			if err == nil && !allowed {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"ok":false,"error":"rate limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP resolves the originating IP, preferring proxy headers over the
// socket peer address.
func clientIP(r *http.Request) string {
	// X-Forwarded-For lists the original client first.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
