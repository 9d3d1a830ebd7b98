package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(policy, scope, id string) string
}

// RateLimitPolicy is a fixed-window limit applied per client IP and, when
// QueryParam is set, per value of that query parameter.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	Limit      int
	QueryParam string
}

func (p RateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

func (p RateLimitPolicy) normalizedName() string {
	name := strings.ToLower(strings.TrimSpace(p.Name))
	if name == "" {
		return "default"
	}
	return name
}

// RateLimit throttles anonymous lookup surfaces such as order tracking. Cache
// failures let the request through.
func RateLimit(policy RateLimitPolicy, store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if ip := clientIP(r); ip != "" {
				key := store.RateLimitKey(policy.normalizedName(), "ip", ip)
				if !allow(ctx, logg, store, key, policy) {
					respondRateLimited(ctx, logg, w, policy, "ip")
					return
				}
			}

			if policy.QueryParam != "" {
				if value := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get(policy.QueryParam))); value != "" {
					key := store.RateLimitKey(policy.normalizedName(), policy.QueryParam, hashValue(value))
					if !allow(ctx, logg, store, key, policy) {
						respondRateLimited(ctx, logg, w, policy, policy.QueryParam)
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, logg *logger.Logger, store rateLimiterStore, key string, policy RateLimitPolicy) bool {
	count, err := store.IncrWithTTL(ctx, key, policy.Window)
	if err != nil {
		if logg != nil {
			logg.Error(ctx, "rate limit counter unavailable", err)
		}
		return true
	}
	return count <= int64(policy.Limit)
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy RateLimitPolicy, scope string) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"policy":         policy.normalizedName(),
			"limit":          policy.Limit,
			"window_seconds": int(policy.Window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, try again later"))
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func hashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
