// Package container wires the application's services with samber/do.
package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/ringtones/internal/analytics"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/events"
	"github.com/serroba/ringtones/internal/media"
	"github.com/serroba/ringtones/internal/ratelimit"
	"github.com/serroba/ringtones/internal/store"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Redis owns the shared redis client.
type Redis struct {
	Client *redis.Client
}

func (r *Redis) Shutdown() error {
	return r.Client.Close()
}

// Postgres owns the connection pool.
type Postgres struct {
	Pool *pgxpool.Pool
}

func (p *Postgres) Shutdown() error {
	p.Pool.Close()

	return nil
}

// ConfigPackage validates the options and provides the parsed Durations.
func ConfigPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (Durations, error) {
		return do.MustInvoke[*Options](i).Validate()
	})
}

// NewLogger builds a console (development) or json (production) logger.
func NewLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}

	return zap.NewDevelopment()
}

func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		return NewLogger(do.MustInvoke[*Options](i).LogFormat)
	})
}

func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Redis, error) {
		opts := do.MustInvoke[*Options](i)

		return &Redis{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage connects and applies the schema on first use.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*Postgres, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("database url is not configured")
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		if err := store.Migrate(ctx, pool); err != nil {
			pool.Close()

			return nil, err
		}

		logger.Info("postgres catalog ready")

		return &Postgres{Pool: pool}, nil
	})
}

// RepositoryPackage provides the catalog repository: Postgres behind a redis
// read cache when a database is configured, in memory otherwise.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (catalog.Repository, error) {
		opts := do.MustInvoke[*Options](i)
		durations := do.MustInvoke[Durations](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			logger.Warn("no database configured, catalog is kept in memory")

			return store.NewCatalogMemoryStore(), nil
		}

		pg, err := do.Invoke[*Postgres](i)
		if err != nil {
			return nil, err
		}

		var repo catalog.Repository = store.NewCatalogPostgresStore(pg.Pool)

		if durations.CacheTTL > 0 {
			rds := do.MustInvoke[*Redis](i)
			repo = store.NewCatalogRedisCache(repo, rds.Client, durations.CacheTTL, logger)
		}

		return repo, nil
	})

	do.Provide(i, func(i *do.Injector) (*catalog.Service, error) {
		gen, err := catalog.NewNumericIDGenerator()
		if err != nil {
			return nil, err
		}

		return catalog.NewService(do.MustInvoke[catalog.Repository](i), gen), nil
	})
}

func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Store, error) {
		if do.MustInvoke[*Options](i).RateLimitBackend == "redis" {
			return store.NewRateLimitRedisStore(do.MustInvoke[*Redis](i).Client), nil
		}

		return store.NewRateLimitMemoryStore(), nil
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.Limiter, error) {
		return ratelimit.NewLimiter(do.MustInvoke[ratelimit.Store](i), ratelimit.DefaultPolicy())
	})
}

func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*events.PublisherGroup, error) {
		rds := do.MustInvoke[*Redis](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := events.NewRedisPublisher(rds.Client, logger)
		if err != nil {
			return nil, err
		}

		return events.NewPublisherGroup(publisher), nil
	})
}

// AnalyticsPackage provides the sink handlers report downloads and
// impressions to: the repository directly, or a redis stream drained by the
// consumer process.
func AnalyticsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (analytics.Sink, error) {
		if do.MustInvoke[*Options](i).AnalyticsMode == "stream" {
			group := do.MustInvoke[*events.PublisherGroup](i)

			return analytics.NewPublisher(group.Publisher()), nil
		}

		return analytics.NewRecorder(do.MustInvoke[catalog.Repository](i), do.MustInvoke[*zap.Logger](i)), nil
	})
}

func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*events.ConsumerGroup, error) {
		rds := do.MustInvoke[*Redis](i)
		logger := do.MustInvoke[*zap.Logger](i)
		repo := do.MustInvoke[catalog.Repository](i)

		subscriber, err := events.NewRedisSubscriber(rds.Client, events.DefaultConsumerGroup, logger)
		if err != nil {
			return nil, err
		}

		group := events.NewConsumerGroup(subscriber, logger)
		analytics.NewRecorder(repo, logger).RegisterConsumers(group)

		return group, nil
	})
}

func MediaPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (media.Storage, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.MediaBackend == "s3" {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()

			s3, err := media.NewS3Storage(ctx, media.S3Config{
				Bucket:          opts.S3Bucket,
				Region:          opts.S3Region,
				Endpoint:        opts.S3Endpoint,
				AccessKeyID:     opts.S3AccessKeyID,
				SecretAccessKey: opts.S3SecretAccessKey,
				PathStyle:       opts.S3PathStyle,
			}, logger)
			if err != nil {
				return nil, err
			}

			return s3, nil
		}

		local, err := media.NewLocalStorage(opts.UploadDir, logger)
		if err != nil {
			return nil, err
		}

		return local, nil
	})

	do.Provide(i, func(i *do.Injector) (*media.Uploader, error) {
		return media.NewUploader(do.MustInvoke[media.Storage](i)), nil
	})
}
