package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/haguru/bookshelf/internal/interfaces"
	storemetrics "github.com/haguru/bookshelf/internal/metrics"
	"github.com/haguru/bookshelf/internal/models/dto"

	"golang.org/x/time/rate"
)

const MsgTooManyRequests = "Too many requests. Please try again later."

// RateLimitMiddleware rejects requests with 429 once limiter runs out of tokens.
func RateLimitMiddleware(limiter *rate.Limiter, logger interfaces.Logger, metrics interfaces.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("Request rate limited", "method", r.Method, "path", r.URL.Path)
				if metrics != nil {
					metrics.IncCounterVec(storemetrics.HTTPRateLimitedTotal, r.Method)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(dto.RateLimitResponse{Message: MsgTooManyRequests})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiter builds a token bucket from the configured rate. A zero rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
