package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"

	"github.com/642studio/bachejoa/internal/service"
)

const tooManyRequests = "Too many requests."

// RateLimit guards a route with the fixed-window limiter. Denied requests
// get 429, a Retry-After header and a JSON error body.
func RateLimit(limiter *service.RateLimiter, rule service.Rule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fp := GetCaller(r.Context()).Fingerprint.Fingerprint
			if fp == "" {
				fp = service.DeriveFingerprint(r).Fingerprint
			}
			d := limiter.CheckFingerprint(r.Context(), fp, rule)
			if !d.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds))
				writeError(w, http.StatusTooManyRequests, tooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GlobalRateLimit is a coarse in-memory per-IP limit applied to the whole
// API in front of the per-route limits. A non-positive limit disables it.
func GlobalRateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, tooManyRequests)
		}),
	)
}
