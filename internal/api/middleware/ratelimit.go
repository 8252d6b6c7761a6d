package middleware

import (
	"net/http"
	"strconv"

	"github.com/dom/chatrelay/internal/ratelimit"
)

// RateLimit rejects requests beyond the per-client window without forwarding
// them. The client key is the source address, honoring proxy headers.
func RateLimit(limiter *ratelimit.Limiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, res := limiter.Allow(clientKey(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(res)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Too many requests, please try again later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfterSeconds(res ratelimit.Result) int {
	secs := int(res.SecondsUntilReset())
	if secs < 1 {
		secs = 1
	}
	return secs
}

func clientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
		return xrip
	}
	return r.RemoteAddr
}
