package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/coffee-matcher/matcher-engine/pkg/config"
)

const rateLimitWindow = time.Minute

// WindowCounter increments a counter that expires after ttl and returns the
// new value. *database.Redis implements it.
type WindowCounter interface {
	IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RateLimit returns a fixed-window rate limiting middleware keyed by client
// IP. Each client gets RequestsPerMinute plus BurstSize requests per window.
// When the counter store fails the request is allowed.
func RateLimit(counter WindowCounter, cfg config.RateLimitConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || !cfg.Enabled {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + clientIP(r, cfg.TrustProxyHeaders)

			count, err := counter.IncrWithExpire(r.Context(), key, rateLimitWindow)
			if err != nil {
				logger.Warn("Rate limiter unavailable, allowing request", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := max(limit-int(count), 0)
			resetTime := time.Now().Add(rateLimitWindow).Unix()

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

			if int(count) > limit+cfg.BurstSize {
				w.Header().Set("Retry-After", strconv.Itoa(int(rateLimitWindow.Seconds())))
				writeRateLimited(w, logger, limit)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimited(w http.ResponseWriter, logger *zap.Logger, limit int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	err := json.NewEncoder(w).Encode(map[string]string{
		"error":   "rate_limited",
		"message": fmt.Sprintf("Rate limit of %d requests per minute exceeded", limit),
	})
	if err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

// clientIP extracts the client address. Forwarded headers are only honored
// when trustProxy is set; otherwise the peer address is used.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xrip := r.Header.Get("X-Real-IP"); xrip != "" {
			return xrip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
