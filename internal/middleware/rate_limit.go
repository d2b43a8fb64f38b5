package middleware

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/osvaldoandrade/songbridge/internal/metrics"
	"github.com/osvaldoandrade/songbridge/internal/ratelimit"
	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

const rateLimitScope = "generate"

// RateLimitGenerate throttles one generate endpoint. Each client IP spends a
// separate budget per generation kind, so a burst of cover requests does not
// block music generation.
func RateLimitGenerate(lim ratelimit.Limiter, policy ratelimit.Policy, kind domain.TaskKind) gin.HandlerFunc {
	bucket := policy.For(kind)
	return func(c *gin.Context) {
		if lim == nil || !bucket.Enabled() {
			c.Next()
			return
		}

		dec, err := lim.Allow(c.Request.Context(), ratelimit.Subject{Client: c.ClientIP(), Kind: kind}, bucket)
		if err != nil {
			// Fail open to avoid turning Redis hiccups into outages.
			slog.Default().Warn("rate limit check failed", "kind", kind, "err", err)
			c.Next()
			return
		}
		if dec.Allowed {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			c.Next()
			return
		}

		retryAfterSeconds := int(math.Ceil(dec.RetryAfter.Seconds()))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		metrics.RateLimitHitsTotal.WithLabelValues(string(kind)).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"success":           false,
			"error":             "rate limit exceeded",
			"scope":             rateLimitScope,
			"kind":              kind,
			"retryAfterSeconds": retryAfterSeconds,
		})
	}
}
