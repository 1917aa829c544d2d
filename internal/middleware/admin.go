package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

// AdminMetadataKey marks an operation as admin-only in its metadata.
const AdminMetadataKey = "admin"

// HeaderAdminKey carries the plaintext admin key.
const HeaderAdminKey = "X-Admin-Key"

// AdminConfig is attached to admin operations under AdminMetadataKey.
type AdminConfig struct {
	// Upload routes also draw from the shared upload throttle.
	Upload bool
}

// ErrAdminDisabled is returned by HashAdminKey for an empty key.
var ErrAdminDisabled = errors.New("admin key must not be empty")

// HashAdminKey returns the bcrypt hash to configure as the admin key hash.
func HashAdminKey(key string) (string, error) {
	if key == "" {
		return "", ErrAdminDisabled
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// AdminGuard rejects admin operations without a valid X-Admin-Key. With an
// empty keyHash every admin operation is refused. Upload operations are
// additionally throttled by uploads, shared across all clients; a nil
// limiter disables the throttle.
func AdminGuard(
	api huma.API,
	keyHash string,
	uploads *rate.Limiter,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cfg, ok := adminConfig(ctx)
		if !ok {
			next(ctx)

			return
		}

		if keyHash == "" {
			_ = huma.WriteErr(api, ctx, http.StatusForbidden, "admin api is disabled")

			return
		}

		key := ctx.Header(HeaderAdminKey)
		if key == "" || bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)) != nil {
			logger.Warn("admin authentication failed",
				zap.String("path", operationPath(ctx)),
				zap.String("client_ip", ClientIP(ctx)),
			)
			_ = huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid admin key")

			return
		}

		if cfg.Upload && uploads != nil {
			r := uploads.Reserve()
			if delay := r.Delay(); !r.OK() || delay > 0 {
				r.Cancel()

				if r.OK() {
					ctx.SetHeader(HeaderRetryAfter, strconv.Itoa(int(delay.Seconds())+1))
				}

				_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "upload rate exceeded")

				return
			}
		}

		next(ctx)
	}
}

func adminConfig(ctx huma.Context) (AdminConfig, bool) {
	op := ctx.Operation()
	if op == nil || op.Metadata == nil {
		return AdminConfig{}, false
	}

	cfg, ok := op.Metadata[AdminMetadataKey].(AdminConfig)

	return cfg, ok
}
