package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/engir-api/pkg/errors"
	"github.com/noah-isme/engir-api/pkg/ratelimit"
	"github.com/noah-isme/engir-api/pkg/response"
)

// Limiter decides whether a keyed request fits in its window.
type Limiter interface {
	Allow(ctx context.Context, key string) (ratelimit.Decision, error)
}

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RecordRateLimited(scope string)
}

// RateLimit throttles requests per client IP within scope. A failing limiter lets the request through.
func RateLimit(limiter Limiter, recorder RateLimitRecorder, logger *zap.Logger, scope string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("scope", scope), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		if !decision.Allowed {
			if recorder != nil {
				recorder.RecordRateLimited(scope)
			}
			c.Header("Retry-After", strconv.Itoa(int(decision.ResetIn.Seconds()+0.5)))
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}
