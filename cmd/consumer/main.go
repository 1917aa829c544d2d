package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kelseyhightower/envconfig"
	"github.com/samber/do"
	"github.com/serroba/ringtones/internal/container"
	"github.com/serroba/ringtones/internal/events"
	"go.uber.org/zap"
)

// Config is read from RINGTONES_* environment variables.
type Config struct {
	RedisAddr   string `default:"localhost:6379" split_words:"true"`
	DatabaseURL string `required:"true"          split_words:"true"`
	LogFormat   string `default:"console"        split_words:"true"`
	CacheTTL    string `default:"0"              split_words:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("ringtones", &cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	opts := &container.Options{
		RedisAddr:        cfg.RedisAddr,
		DatabaseURL:      cfg.DatabaseURL,
		LogFormat:        cfg.LogFormat,
		CacheTTL:         cfg.CacheTTL,
		RateLimitBackend: "memory",
		AnalyticsMode:    "inline",
		MediaBackend:     "local",
		TokenMaxAge:      "5m",
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.ConfigPackage(injector)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.RepositoryPackage(injector)
	container.ConsumerGroupPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)

	group, err := do.Invoke[*events.ConsumerGroup](injector)
	if err != nil {
		logger.Fatal("failed to build consumer group", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("consumers running", zap.Int("count", group.Len()))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
