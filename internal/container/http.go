package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/serroba/ringtones/internal/analytics"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/downloadtoken"
	"github.com/serroba/ringtones/internal/handlers"
	"github.com/serroba/ringtones/internal/health"
	"github.com/serroba/ringtones/internal/media"
	"github.com/serroba/ringtones/internal/metrics"
	"github.com/serroba/ringtones/internal/middleware"
	"github.com/serroba/ringtones/internal/ratelimit"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPPackage provides the chi router and the huma API mounted on it.
// Invoking huma.API registers every route.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(metrics.Middleware)
		router.Handle("/metrics", metrics.Handler())

		return router, nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		durations := do.MustInvoke[Durations](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		repo := do.MustInvoke[catalog.Repository](i)
		sink := do.MustInvoke[analytics.Sink](i)
		limiter := do.MustInvoke[*ratelimit.Limiter](i)

		api := humachi.New(router, huma.DefaultConfig("Ringtones API", "1.0.0"))

		api.UseMiddleware(
			middleware.WithRequestMeta(api),
			middleware.PolicyRateLimiter(api, limiter, ratelimit.NewOperationScopeResolver(), logger),
			middleware.AdminGuard(api, opts.AdminKeyHash, uploadThrottle(durations), logger),
		)

		handlers.RegisterRoutes(api, handlers.Handlers{
			Catalog: handlers.NewCatalogHandler(repo, opts.PublicURL(), logger),
			Downloads: handlers.NewDownloadHandler(
				repo,
				do.MustInvoke[media.Storage](i),
				downloadTokens(opts, logger),
				durations.TokenMaxAge,
				sink,
				opts.PublicURL(),
				logger,
			),
			Ads: handlers.NewAdHandler(repo, sink, logger),
			Admin: handlers.NewAdminHandler(
				do.MustInvoke[*catalog.Service](i),
				repo,
				do.MustInvoke[*media.Uploader](i),
				opts.PublicURL(),
				logger,
			),
		})

		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i, opts)))

		if opts.AdminKeyHash == "" {
			logger.Warn("admin key hash not set, admin API is disabled")
		}

		return api, nil
	})
}

func downloadTokens(opts *Options, logger *zap.Logger) *downloadtoken.Issuer {
	secret := opts.TokenSecret
	if secret == "" {
		secret = uuid.NewString()

		logger.Info("no token secret configured, using a random marker secret; tokens are still accepted across restarts")
	}

	return downloadtoken.New(secret)
}

func uploadThrottle(d Durations) *rate.Limiter {
	if d.UploadRate <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Every(d.UploadRate), 1)
}

func healthCheckers(i *do.Injector, opts *Options) map[string]health.Checker {
	checkers := map[string]health.Checker{
		"redis": health.NewRedisChecker(do.MustInvoke[*Redis](i).Client),
	}

	if opts.DatabaseURL != "" {
		checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
	}

	return checkers
}
