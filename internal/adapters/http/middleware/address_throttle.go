// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/l4yercom/picknbrain/internal/core/domain"
	"github.com/l4yercom/picknbrain/internal/core/ports"
)

const throttledMessage = "you have reached the maximum number of requests allowed within a certain time frame"

// NewAddressThrottle gates every request on the source address's rate
// window, before any session resolution happens. It bounds what a single
// address can do regardless of how many sessions it rotates through.
func NewAddressThrottle(limiter ports.RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			decision, err := limiter.AllowAddress(r.Context(), ip)
			if err != nil {
				if domain.IsRateLimited(err) {
					writeThrottled(w, err)
					return
				}

				logger.Error("address throttle failed", "ip", ip, "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if !decision.Allowed {
				writeThrottled(w, nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP resolves the source address of a request, preferring proxy
// headers over the raw remote address.
func ClientIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}

func writeThrottled(w http.ResponseWriter, err error) {
	var retry *domain.RetryAfterError
	if errors.As(err, &retry) && retry.After > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.After.Seconds()))))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(throttledMessage))
}
