package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ringtones/internal/metrics"
	"github.com/serroba/ringtones/internal/ratelimit"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// PolicyRateLimiter returns a Huma middleware that checks the client IP
// against the quota of the scope the resolver picks for the operation.
//
// Operations opt out with ratelimit.EndpointConfig{Disabled: true} in their
// metadata, or choose a pool with EndpointConfig.Scope.
func PolicyRateLimiter(
	api huma.API,
	limiter *ratelimit.Limiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		scope := resolver.Resolve(ctx)
		ip := ClientIP(ctx)

		res, err := limiter.Allow(ctx.Context(), scope, ip)
		if err != nil {
			metrics.RateLimitDecisions.WithLabelValues(string(scope), "error").Inc()
			logger.Error("rate limit check failed",
				zap.String("path", operationPath(ctx)),
				zap.String("scope", string(scope)),
				zap.Error(err),
			)
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		if res.Limit > 0 {
			ctx.SetHeader(HeaderLimit, strconv.FormatInt(res.Limit, 10))
			ctx.SetHeader(HeaderRemaining, strconv.FormatInt(res.Remaining, 10))
			ctx.SetHeader(HeaderReset, strconv.FormatInt(res.ResetAt.Unix(), 10))
		}

		if !res.Allowed {
			metrics.RateLimitDecisions.WithLabelValues(string(scope), "denied").Inc()

			retry := res.RetryAfter(time.Now())
			ctx.SetHeader(HeaderRetryAfter, strconv.Itoa(int(retry/time.Second)))

			logger.Warn("rate limit exceeded",
				zap.String("path", operationPath(ctx)),
				zap.String("method", ctx.Method()),
				zap.String("scope", string(scope)),
				zap.Int64("max", res.Limit),
				zap.String("client_ip", ip),
			)

			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests,
				fmt.Sprintf("rate limit exceeded: %d %s requests per window, retry in %s", res.Limit, scope, retry))

			return
		}

		metrics.RateLimitDecisions.WithLabelValues(string(scope), "allowed").Inc()
		next(ctx)
	}
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}
