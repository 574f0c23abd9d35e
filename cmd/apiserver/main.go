// API server entry point for the market intelligence platform.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vlxd-platform/market-intelligence/internal/application/churn"
	"github.com/vlxd-platform/market-intelligence/internal/application/forecasting"
	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/application/matching"
	"github.com/vlxd-platform/market-intelligence/internal/application/pricing"
	"github.com/vlxd-platform/market-intelligence/internal/application/search"
	"github.com/vlxd-platform/market-intelligence/internal/application/sentiment"
	"github.com/vlxd-platform/market-intelligence/internal/config"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/postgres"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/redis"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/messaging/kafka"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/search/milvus"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/search/opensearch"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/storage/fs"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/storage/minio"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/embedding"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/similarity"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/vectorstore"
	httpserver "github.com/vlxd-platform/market-intelligence/internal/interfaces/http"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/http/handlers"
	"github.com/vlxd-platform/market-intelligence/internal/interfaces/http/middleware"
)

// Build-time version injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      cfg.Logging.OutputPaths,
		ErrorOutputPaths: cfg.Logging.ErrorOutputPaths,
	})
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	logging.SetDefault(logger)

	logger.Info("starting market intelligence API server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port))

	ctx := context.Background()
	var checkers []handlers.HealthChecker
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// ─── Sales history (PostgreSQL) ─────────────────────────────────────

	var history forecasting.HistorySource
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			Database:        cfg.Database.DBName,
			Username:        cfg.Database.User,
			Password:        cfg.Database.Password,
			SSLMode:         cfg.Database.SSLMode,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		checkers = append(checkers, &postgresHealthAdapter{pool: pool})

		if cfg.Database.MigrationPath != "" {
			dbURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
				cfg.Database.User, cfg.Database.Password,
				cfg.Database.Host, cfg.Database.Port,
				cfg.Database.DBName, cfg.Database.SSLMode)
			if err := postgres.RunMigrations(dbURL, cfg.Database.MigrationPath); err != nil {
				return fmt.Errorf("running migrations: %w", err)
			}
		}

		history = repositories.NewSalesRepository(pool.Pool(), logger)
	}

	// ─── Training locks (Redis) ─────────────────────────────────────────

	var locker forecasting.Locker
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&redis.Config{
			Mode:         "single",
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		checkers = append(checkers, &redisHealthAdapter{client: redisClient})

		locker = redis.NewTrainLocker(redisClient, logger,
			redis.WithLockTTL(cfg.Forecast.TrainingLockTTL))
	}

	// ─── Vector index (Milvus or in-memory) ─────────────────────────────

	var index vectorstore.VectorIndex = vectorstore.NewMemoryIndex()
	if cfg.Milvus.Enabled {
		milvusClient, err := milvus.NewClient(milvus.Config{
			Address: cfg.Milvus.Addr,
			DBName:  cfg.Milvus.DBName,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to milvus: %w", err)
		}
		closers = append(closers, func() { _ = milvusClient.Close() })
		checkers = append(checkers, &milvusHealthAdapter{client: milvusClient})

		productIndex := milvus.NewProductIndex(milvusClient, milvus.IndexConfig{
			Collection: cfg.Milvus.CollectionPrefix + "products",
			Dimension:  cfg.Embedding.Dimension,
			MaxTopK:    cfg.Milvus.DefaultTopK,
		}, logger)
		if err := productIndex.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("ensuring milvus collection: %w", err)
		}
		index = productIndex
	}

	// ─── Keyword mirror (OpenSearch) ────────────────────────────────────

	var mirror search.KeywordIndexer
	if cfg.OpenSearch.Enabled {
		osClient, err := opensearch.NewClient(opensearch.Config{
			Addresses:   cfg.OpenSearch.Addresses,
			Username:    cfg.OpenSearch.User,
			Password:    cfg.OpenSearch.Password,
			InsecureTLS: cfg.OpenSearch.InsecureSkipVerify,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to opensearch: %w", err)
		}
		closers = append(closers, func() { _ = osClient.Close() })
		checkers = append(checkers, &opensearchHealthAdapter{client: osClient})

		productMirror := opensearch.NewProductMirror(osClient, opensearch.MirrorConfig{
			Index: cfg.OpenSearch.IndexPrefix + "products",
		}, logger)
		if err := productMirror.EnsureIndex(ctx); err != nil {
			return fmt.Errorf("ensuring opensearch index: %w", err)
		}
		mirror = productMirror
	}

	// ─── Model artifacts (MinIO or local filesystem) ────────────────────

	var store forecasting.ArtifactStore
	if cfg.MinIO.Enabled {
		minioClient, err := minio.NewClient(&minio.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKey,
			SecretAccessKey: cfg.MinIO.SecretKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Buckets:         minio.BucketConfig{Models: cfg.MinIO.Bucket},
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to minio: %w", err)
		}
		store = minio.NewArtifactStore(minioClient, logger)
	} else {
		store, err = fs.NewStore(cfg.Forecast.ArtifactDir)
		if err != nil {
			return fmt.Errorf("opening artifact directory: %w", err)
		}
	}

	// ─── Alert publishing (Kafka) ───────────────────────────────────────

	var publisher market.AlertPublisher
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			MaxRetries: cfg.Kafka.ProducerRetries,
			BatchSize:  cfg.Kafka.BatchSize,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating kafka producer: %w", err)
		}
		closers = append(closers, func() { _ = producer.Close() })
		publisher = kafka.NewAlertPublisher(producer, logger)
	}

	// ─── Intelligence components ────────────────────────────────────────

	var embedder embedding.Embedder
	if cfg.Embedding.Provider == "api" {
		embedder = embedding.NewAPIEmbedder(embedding.APIConfig{
			URL:       cfg.Embedding.APIURL,
			APIKey:    cfg.Embedding.APIKey,
			Model:     cfg.Embedding.Model,
			Dimension: cfg.Embedding.Dimension,
			Timeout:   cfg.Embedding.Timeout,
		}, logger)
	} else {
		embedder = embedding.NewHashEmbedder(cfg.Embedding.Dimension)
	}

	scorer, err := similarity.NewScorer(cfg.Search.SimilarityStrategy)
	if err != nil {
		return fmt.Errorf("selecting similarity strategy: %w", err)
	}

	// ─── Application services ───────────────────────────────────────────

	churnSvc := churn.NewService(churn.Deps{Logger: logger})
	pricingSvc := pricing.NewService(pricing.Deps{Logger: logger})
	sentimentSvc := sentiment.NewService(sentiment.Deps{Logger: logger})
	marketSvc := market.NewService(market.Deps{Publisher: publisher, Logger: logger})

	matchingSvc, err := matching.NewService(matching.Deps{Scorer: scorer, Logger: logger})
	if err != nil {
		return fmt.Errorf("building matching service: %w", err)
	}
	searchSvc, err := search.NewService(search.Deps{
		Embedder: embedder,
		Index:    index,
		Mirror:   mirror,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("building search service: %w", err)
	}
	forecastSvc, err := forecasting.NewService(forecasting.Deps{
		Store:   store,
		Locker:  locker,
		History: history,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("building forecasting service: %w", err)
	}

	// ─── HTTP surface ───────────────────────────────────────────────────

	metrics, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace:            "marketintel",
		EnableProcessMetrics: true,
		EnableGoMetrics:      true,
	}, logger)
	if err != nil {
		return fmt.Errorf("building metrics collector: %w", err)
	}

	limiter := middleware.NewTokenBucketLimiter(
		float64(cfg.Server.RateLimitRPS), cfg.Server.RateLimitRPS*2, 5*time.Minute)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Churn:     handlers.NewChurnHandler(churnSvc, logger),
		Pricing:   handlers.NewPricingHandler(pricingSvc, logger),
		Matching:  handlers.NewMatchingHandler(matchingSvc, logger),
		Market:    handlers.NewMarketHandler(marketSvc, logger),
		Sentiment: handlers.NewSentimentHandler(sentimentSvc, logger),
		Search:    handlers.NewSearchHandler(searchSvc, logger),
		Forecast:  handlers.NewForecastHandler(forecastSvc, logger),
		Health:    handlers.NewHealthHandler(version, checkers...),

		CORS:           middleware.CORS(middleware.DefaultCORSConfig()),
		RequestLogging: middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()),
		RateLimit:      middleware.RateLimit(limiter, middleware.DefaultRateLimitConfig()),

		Metrics: metrics,
	})

	server := httpserver.NewServer(httpserver.Config{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", logging.String("addr", server.Addr()))
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", logging.Err(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
