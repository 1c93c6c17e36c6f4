package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"enrichment-engine/internal/cache"
	"enrichment-engine/internal/common/logging"
	"enrichment-engine/internal/config"
	"enrichment-engine/internal/engine"
	"enrichment-engine/internal/events"
	"enrichment-engine/internal/health"
	"enrichment-engine/internal/lineage"
	"enrichment-engine/internal/metrics"
	"enrichment-engine/internal/registry"
	"enrichment-engine/internal/resilience"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)
	defer logging.MustSync()

	// Redis backs both the shared cache and event fan-out when configured.
	var redisClient *redis.Client
	if cfg.RedisAddress != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddress, err)
		}
		cancel()
		defer redisClient.Close()
	}

	var cacheLayer *cache.Layer
	if cfg.CacheEnabled {
		var store cache.Store
		if redisClient != nil {
			store = cache.NewRedisStore(redisClient, "")
		} else {
			store = cache.NewLocalStore(cfg.CacheDefaultTTL, time.Minute)
		}
		cacheLayer = cache.NewLayer(store, logger)
	}

	var sink lineage.Sink
	if cfg.LineageDBPath != "" {
		sqlSink, err := lineage.NewSQLiteSink(cfg.LineageDBPath)
		if err != nil {
			log.Fatalf("Failed to open lineage database: %v", err)
		}
		defer sqlSink.Close()
		sink = sqlSink
	} else {
		sink = lineage.NewMemorySink()
	}
	recorder := lineage.NewRecorder(sink, 5*time.Second, logger)

	var publisher events.Publisher
	if redisClient != nil {
		publisher = events.NewRedisPublisher(redisClient, cfg.EventsChannel)
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	metricSink := metrics.NewLogSink(logger)

	policy := resilience.Policy{
		MaxConcurrent:       cfg.ProviderMaxConcurrent,
		RequestsPerSecond:   cfg.ProviderRateLimit,
		BurstSize:           cfg.ProviderBurstSize,
		MaxFailures:         cfg.ProviderMaxFailures,
		BreakerInterval:     time.Minute,
		BreakerTimeout:      cfg.ProviderBreakerTimeout,
		HalfOpenMaxRequests: 2,
		MaxRetries:          cfg.ProviderMaxRetries,
		RetryDelay:          200 * time.Millisecond,
		MaxRetryDelay:       5 * time.Second,
		JitterFraction:      0.2,
		CallTimeout:         cfg.ProviderCallTimeout,
	}
	guards := resilience.NewManager(policy, nil, logger, metricSink)

	reg := registry.New()

	indicator := health.NewIndicator(reg, guards, cfg.HealthProbeInterval, logger)
	if err := indicator.Start(); err != nil {
		log.Fatalf("Failed to start health probes: %v", err)
	}
	defer indicator.Stop()

	eng, err := engine.New(engine.Config{
		DefaultCacheTTL: cfg.CacheDefaultTTL,
		RequestTimeout:  cfg.RequestTimeout,
		BatchWorkers:    cfg.BatchWorkers,
	}, engine.Dependencies{
		Registry:  reg,
		Guards:    guards,
		Cache:     cacheLayer,
		Recorder:  recorder,
		Publisher: publisher,
		Health:    indicator,
		Metrics:   metricSink,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer eng.Close()

	logger.Info("enrichment engine started",
		logging.Int("batch_workers", cfg.BatchWorkers),
		logging.Bool("cache_enabled", cfg.CacheEnabled),
		logging.Bool("redis", redisClient != nil),
	)

	// Enrichers register through the engine's registry; embedding services
	// wire their own providers here before serving traffic.

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
}
