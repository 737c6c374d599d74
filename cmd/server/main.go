package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpapi "github.com/alangsilva86/leadengine-corban-sub002/internal/api/http"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/pipeline"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/application/vote"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/config"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/domain/poll"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/keystore"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/memstore"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/postgres"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/redisstore"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/sse"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/infrastructure/wacrypto"
	"github.com/alangsilva86/leadengine-corban-sub002/internal/telemetry"
)

// messageIndex is the union of the recorder side used by the API and the
// finder side used by the pipeline.
type messageIndex interface {
	httpapi.MessageRecorder
	pipeline.MessageFinder
}

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	store, messages, metadata, lastEvents, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer cleanup()

	telemetry.Register(prometheus.DefaultRegisterer)

	// infrastructure
	sseHub := sse.NewHub()
	keyStore, err := keystore.NewFromEnv()
	if err != nil {
		log.Fatalf("keystore error: %v", err)
	}

	// services
	voteSvc := vote.NewService(store, metadata, &wacrypto.Decrypter{}, keyStore, logger)
	votePipeline, err := pipeline.New(voteSvc, messages, logger)
	if err != nil {
		log.Fatalf("pipeline error: %v", err)
	}

	// API server
	apiServer := httpapi.NewServer(votePipeline, store, messages, lastEvents, sseHub, cfg.TenantID, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Str("store", cfg.Store).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}

// buildStores selects the persistence backend from POLL_STORE. The message
// index, metadata provider and last-event keys follow the backend where the
// backend offers them; otherwise in-memory stand-ins keep the pipeline
// complete.
func buildStores(ctx context.Context, cfg *config.Config) (poll.Store, messageIndex, poll.MetadataProvider, httpapi.LastEventStore, func(), error) {
	switch cfg.Store {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, nil, err
		}
		if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
			pool.Close()
			return nil, nil, nil, nil, nil, err
		}
		return postgres.NewPollStateRepository(pool), memstore.NewMessageIndex(), nil, nil, pool.Close, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, nil, nil, nil, err
		}
		cleanup := func() { _ = client.Close() }
		return redisstore.NewStore(client),
			redisstore.NewMessageIndex(client, cfg.MessageIndexTTL),
			redisstore.NewMetadataProvider(client),
			redisstore.NewLastEvents(client, cfg.LastEventTTL),
			cleanup, nil

	default:
		return memstore.New(), memstore.NewMessageIndex(), nil, nil, func() {}, nil
	}
}
