package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"

	"github.com/trogers1052/ticker-research-service/internal/analysis"
	"github.com/trogers1052/ticker-research-service/internal/api"
	"github.com/trogers1052/ticker-research-service/internal/cache"
	"github.com/trogers1052/ticker-research-service/internal/config"
	"github.com/trogers1052/ticker-research-service/internal/database"
	"github.com/trogers1052/ticker-research-service/internal/kafka"
	"github.com/trogers1052/ticker-research-service/internal/llm"
	"github.com/trogers1052/ticker-research-service/internal/logging"
	"github.com/trogers1052/ticker-research-service/internal/otcmarkets"
	"github.com/trogers1052/ticker-research-service/internal/ratelimit"
	"github.com/trogers1052/ticker-research-service/internal/service"
	"github.com/trogers1052/ticker-research-service/internal/watchlist"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Logging)

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("Server stopped")
}

func run(cfg *config.Config, logger arbor.ILogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	logger.Info().Msg("Database migrations applied")

	store, closeStore, err := newCacheStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter := ratelimit.New(cfg.OTCMarkets.RateLimitCalls, cfg.OTCMarkets.RateLimitWindow)
	fetcher := otcmarkets.NewClient(limiter, store, logger,
		otcmarkets.WithBaseURL(cfg.OTCMarkets.BaseURL),
		otcmarkets.WithHTTPClient(&http.Client{Timeout: cfg.OTCMarkets.Timeout}),
		otcmarkets.WithNewsLimit(cfg.OTCMarkets.NewsLimit),
	)

	if cfg.Anthropic.APIKey == "" {
		logger.Warn().Msg("ANTHROPIC_API_KEY is not set, analyses will fail")
	}
	model := llm.NewRetrying(llm.NewClaude(cfg.Anthropic, logger), logger)
	pipeline := analysis.NewPipeline(model, logger,
		analysis.WithFilingBaseURL(cfg.Filing.BaseURL),
		analysis.WithMaxDocumentBytes(cfg.Filing.MaxDocumentBytes),
	)

	writerOpts := []watchlist.Option{watchlist.WithFilingBaseURL(cfg.Filing.BaseURL)}
	serviceOpts := []service.Option{
		service.WithMaxAge(cfg.Cache.MaxAge),
		service.WithRetry(cfg.OTCMarkets.FetchAttempts, cfg.OTCMarkets.RetryDelay),
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		writerOpts = append(writerOpts, watchlist.WithPublisher(producer))
		serviceOpts = append(serviceOpts, service.WithPublisher(producer))
	} else {
		logger.Info().Msg("Kafka brokers not configured, event publishing disabled")
	}

	writer := watchlist.NewWriter(db, logger, writerOpts...)
	svc := service.NewTickerService(fetcher, store, pipeline, writer, logger, serviceOpts...)

	if cfg.Kafka.Enabled() {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RefreshTopic, cfg.Kafka.GroupID, svc, logger)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("Kafka consumer stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           api.SetupRoutes(api.NewHandler(svc, logger)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCacheStore selects the ticker cache backend
func newCacheStore(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (cache.Store, func(), error) {
	if cfg.Cache.Backend != "redis" {
		logger.Info().Msg("Using in-memory ticker cache")
		return cache.NewMemory(cache.WithTTL(cfg.Cache.TTL)), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := cache.NewRedis(client, cfg.Cache.TTL)
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}

	logger.Info().Str("addr", cfg.Redis.Addr).Msg("Using redis ticker cache")
	return store, func() { client.Close() }, nil
}
