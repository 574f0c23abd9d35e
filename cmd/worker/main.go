// Background worker entry point: periodic model retraining over the recorded
// sales history, demand anomaly scans publishing market alerts, and alert
// delivery off the Kafka topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vlxd-platform/market-intelligence/internal/application/forecasting"
	"github.com/vlxd-platform/market-intelligence/internal/application/market"
	"github.com/vlxd-platform/market-intelligence/internal/config"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/postgres"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/postgres/repositories"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/database/redis"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/messaging/kafka"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/storage/fs"
	"github.com/vlxd-platform/market-intelligence/internal/infrastructure/storage/minio"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/anomaly"
	"github.com/vlxd-platform/market-intelligence/internal/intelligence/forecast"
	"github.com/vlxd-platform/market-intelligence/pkg/types/common"
)

const (
	defaultHealthPort = 8081

	// retrainAfter is the artifact age beyond which a model is considered
	// stale and retrained on the next cycle.
	retrainAfter = 24 * time.Hour

	// scanWindowDays is how much sales history feeds each anomaly scan.
	scanWindowDays = 90

	// alertCooldown suppresses repeated demand alerts for the same product.
	alertCooldown = 12 * time.Hour
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (env-only when empty)")
	workers := flag.Int("workers", 0, "concurrent training jobs (overrides config)")
	healthPort := flag.Int("health-port", defaultHealthPort, "health and metrics port")
	flag.Parse()

	if err := run(*configPath, *workers, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, workerOverride, healthPort int) error {
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
	if workerOverride > 0 {
		cfg.Worker.Concurrency = workerOverride
	}
	if !cfg.Database.Enabled {
		return fmt.Errorf("the worker needs the sales database; set database.enabled")
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
	logger = logger.Named("worker")

	logger.Info("starting market intelligence worker",
		logging.String("version", version),
		logging.Int("concurrency", cfg.Worker.Concurrency),
		logging.Duration("pollInterval", cfg.Worker.PollInterval))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Infrastructure ─────────────────────────────────────────────────

	pool, err := postgres.NewPool(ctx, postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.DBName,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()
	sales := repositories.NewSalesRepository(pool.Pool(), logger)

	var locker forecasting.Locker
	var cache redis.Cache
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&redis.Config{
			Mode:     "single",
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer redisClient.Close()
		locker = redis.NewTrainLocker(redisClient, logger,
			redis.WithLockTTL(cfg.Forecast.TrainingLockTTL))
		cache = redis.NewCache(redisClient, logger)
	}

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

	var publisher *kafka.AlertPublisher
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:    cfg.Kafka.Brokers,
			MaxRetries: cfg.Kafka.ProducerRetries,
			BatchSize:  cfg.Kafka.BatchSize,
		}, logger)
		if err != nil {
			return fmt.Errorf("creating kafka producer: %w", err)
		}
		defer producer.Close()
		publisher = kafka.NewAlertPublisher(producer, logger)

		consumer, err = kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topics:  []string{kafka.TopicMarketAlert},
			RetryConfig: kafka.RetryConfig{
				MaxRetries:      cfg.Worker.MaxRetries,
				RetryBackoff:    cfg.Worker.RetryBackoffMS,
				DeadLetterTopic: kafka.TopicDeadLetterDefault,
			},
		}, logger)
		if err != nil {
			return fmt.Errorf("creating kafka consumer: %w", err)
		}
		defer consumer.Close()
	}

	forecastSvc, err := forecasting.NewService(forecasting.Deps{
		Store:   store,
		Locker:  locker,
		History: sales,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("building forecasting service: %w", err)
	}

	metrics, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: "marketintel",
		Subsystem: "worker",
	}, logger)
	if err != nil {
		return fmt.Errorf("building metrics collector: %w", err)
	}
	trainedCounter := metrics.RegisterCounter("models_trained_total",
		"Models retrained by the background worker", "outcome")
	alertCounter := metrics.RegisterCounter("demand_alerts_total",
		"Demand alerts raised by the anomaly scan", "severity")
	deliveredCounter := metrics.RegisterCounter("alerts_delivered_total",
		"Alerts consumed off the market alert topic")

	w := &worker{
		cfg:       cfg,
		logger:    logger,
		sales:     sales,
		forecasts: forecastSvc,
		publisher: publisher,
		cache:     cache,
		detector:  anomaly.NewDetector(anomaly.DefaultThreshold),
		lastAlert: make(map[string]time.Time),
		trained:   trainedCounter,
		alerts:    alertCounter,
	}

	// ─── Run loops ──────────────────────────────────────────────────────

	healthSrv := startHealthServer(healthPort, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.retrainLoop(gctx) })
	g.Go(func() error { return w.scanLoop(gctx) })
	if consumer != nil {
		consumer.Subscribe(kafka.TopicMarketAlert, func(ctx context.Context, msg *kafka.Message) error {
			alert, err := kafka.DecodeAlert(msg)
			if err != nil {
				return err
			}
			deliveredCounter.WithLabelValues().Inc()
			logger.Info("market alert",
				logging.String("product", alert.Product),
				logging.String("type", string(alert.Type)),
				logging.String("severity", string(alert.Severity)),
				logging.String("message", alert.Message))
			return nil
		})
		if err := consumer.Start(gctx); err != nil {
			return fmt.Errorf("starting kafka consumer: %w", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", logging.String("signal", sig.String()))
		cancel()
	case <-gctx.Done():
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker loop failed", logging.Err(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown failed", logging.Err(err))
	}

	logger.Info("worker stopped")
	return nil
}

// ---------------------------------------------------------------------------
// Worker loops
// ---------------------------------------------------------------------------

type worker struct {
	cfg       *config.Config
	logger    logging.Logger
	sales     *repositories.SalesRepository
	forecasts forecasting.Service
	publisher *kafka.AlertPublisher
	cache     redis.Cache
	detector  *anomaly.Detector

	mu        sync.Mutex
	lastAlert map[string]time.Time

	trained prometheus.CounterVec
	alerts  prometheus.CounterVec
}

// retrainLoop retrains products whose artifact is missing or older than
// retrainAfter, a bounded number at a time.
func (w *worker) retrainLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		w.retrainPass(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *worker) retrainPass(ctx context.Context) {
	ids, err := w.sales.ListProductIDs(ctx, forecast.MinTrainPoints)
	if err != nil {
		w.logger.Error("listing products failed", logging.Err(err))
		return
	}

	models, err := w.forecasts.ListModels(ctx)
	if err != nil {
		w.logger.Error("listing models failed", logging.Err(err))
		return
	}
	trainedAt := make(map[string]time.Time, len(models))
	for _, m := range models {
		if m.Metrics == nil {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, m.Metrics.TrainedAt); err == nil {
			trainedAt[m.ProductID] = ts
		}
	}

	now := time.Now().UTC()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Worker.Concurrency)
	var scheduled int
	for _, id := range ids {
		if ts, ok := trainedAt[id]; ok && now.Sub(ts) < retrainAfter {
			continue
		}
		scheduled++
		productID := id
		g.Go(func() error {
			_, err := w.forecasts.Train(gctx, forecasting.TrainRequest{ProductID: productID})
			if err != nil {
				w.trained.WithLabelValues("error").Inc()
				w.logger.Warn("retraining failed",
					logging.String("productId", productID), logging.Err(err))
				return nil
			}
			w.trained.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()

	if scheduled > 0 {
		w.logger.Info("retraining pass complete",
			logging.Int("candidates", len(ids)),
			logging.Int("retrained", scheduled))
	}
}

// scanLoop looks for demand anomalies in the recent sales of every product
// and publishes them as market alerts.
func (w *worker) scanLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Worker.PollInterval)
	defer ticker.Stop()

	for {
		w.scanPass(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *worker) scanPass(ctx context.Context) {
	ids, err := w.sales.ListProductIDs(ctx, anomaly.MinHistory+1)
	if err != nil {
		w.logger.Error("listing products failed", logging.Err(err))
		return
	}

	var alerts []market.Alert
	for _, id := range ids {
		series, err := w.sales.FetchDailySales(ctx, id, scanWindowDays)
		if err != nil || len(series) < anomaly.MinHistory+1 {
			continue
		}

		history := make([]float64, len(series)-1)
		for i := 0; i < len(series)-1; i++ {
			history[i] = series[i].Value
		}
		latest := series[len(series)-1].Value

		res := w.detector.Detect(latest, history)
		if !res.IsAnomaly || w.inCooldown(ctx, id) {
			continue
		}

		alertType := market.AlertDemandDrop
		direction := "giảm"
		if res.Direction == anomaly.DirectionHigh {
			alertType = market.AlertDemandSpike
			direction = "tăng"
		}
		severity := common.SeverityMedium
		if math.Abs(res.ZScore) > anomaly.DefaultThreshold+1 {
			severity = common.SeverityHigh
		}

		alerts = append(alerts, market.Alert{
			ID:            fmt.Sprintf("alert_%s_%s", id, time.Now().UTC().Format("20060102")),
			Type:          alertType,
			Severity:      severity,
			Product:       id,
			Message: fmt.Sprintf(
				"Nhu cầu %s bất thường: %.1f so với trung bình %.1f",
				direction, latest, res.Mean),
			CurrentPrice:  latest,
			ExpectedPrice: math.Round(res.Mean),
			CreatedAt:     time.Now().UTC(),
		})
		w.alerts.WithLabelValues(string(severity)).Inc()
		w.markAlerted(ctx, id)
	}

	if len(alerts) == 0 {
		return
	}
	if w.publisher == nil {
		w.logger.Info("demand anomalies found, no alert topic configured",
			logging.Int("count", len(alerts)))
		return
	}
	if err := w.publisher.Publish(ctx, alerts); err != nil {
		w.logger.Error("publishing demand alerts failed", logging.Err(err))
		return
	}
	w.logger.Info("demand alerts published", logging.Int("count", len(alerts)))
}

// inCooldown reports whether the product alerted within the cooldown window.
// The Redis cache makes the cooldown survive restarts; the in-memory map is
// the fallback.
func (w *worker) inCooldown(ctx context.Context, productID string) bool {
	if w.cache != nil {
		exists, err := w.cache.Exists(ctx, cooldownKey(productID))
		if err == nil {
			return exists
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastAlert[productID]
	return ok && time.Since(last) < alertCooldown
}

func (w *worker) markAlerted(ctx context.Context, productID string) {
	if w.cache != nil {
		if err := w.cache.Set(ctx, cooldownKey(productID), time.Now().UTC(), alertCooldown); err == nil {
			return
		}
	}
	w.mu.Lock()
	w.lastAlert[productID] = time.Now()
	w.mu.Unlock()
}

func cooldownKey(productID string) string {
	return "worker:alert_cooldown:" + productID
}

// ---------------------------------------------------------------------------
// Health endpoint
// ---------------------------------------------------------------------------

func startHealthServer(port int, metrics prometheus.MetricsCollector, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", logging.Err(err))
		}
	}()
	return srv
}
