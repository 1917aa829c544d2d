package main

import (
	"context"
	"log"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/samber/do"
	"github.com/serroba/ringtones/internal/catalog"
	"github.com/serroba/ringtones/internal/container"
	"github.com/serroba/ringtones/internal/seed"
	"go.uber.org/zap"
)

// Config is read from RINGTONES_* environment variables.
type Config struct {
	DatabaseURL string `required:"true"   split_words:"true"`
	LogFormat   string `default:"console" split_words:"true"`
	// SeedFile replaces the built-in seed data when set.
	SeedFile string `split_words:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("ringtones", &cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	injector := do.New()
	do.ProvideValue(injector, &container.Options{
		DatabaseURL:      cfg.DatabaseURL,
		LogFormat:        cfg.LogFormat,
		CacheTTL:         "0",
		RateLimitBackend: "memory",
		AnalyticsMode:    "inline",
		MediaBackend:     "local",
		TokenMaxAge:      "5m",
	})
	container.ConfigPackage(injector)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	defer func() {
		if err := injector.Shutdown(); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	}()

	data, err := load(cfg.SeedFile)
	if err != nil {
		logger.Fatal("failed to load seed data", zap.Error(err))
	}

	repo, err := do.Invoke[catalog.Repository](injector)
	if err != nil {
		logger.Fatal("failed to open catalog", zap.Error(err))
	}

	if err := data.Apply(context.Background(), repo, logger); err != nil {
		logger.Fatal("seeding failed", zap.Error(err))
	}

	logger.Info("seeding complete")
}

func load(path string) (*seed.Data, error) {
	if path == "" {
		return seed.Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return seed.Parse(raw)
}
